package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/bot"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/db"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/finalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/logutil"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/internal/worker"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/media"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/property"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/contentgen"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/geocoder"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/ocr"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/openai"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/vision"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/providers/workflow"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/scoring"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/whatsapp"
)

const maxWebhookBody = 1 << 20 // 1 MiB

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
			if bind == "" {
				bind = "0.0.0.0"
			}
			port := flagOrViperInt(cmd, "server-port", "server.port")
			if port <= 0 {
				port = 8080
			}

			token := strings.TrimSpace(viper.GetString("whatsapp.token"))
			phoneNumberID := strings.TrimSpace(viper.GetString("whatsapp.phone_number_id"))
			verifyToken := strings.TrimSpace(viper.GetString("whatsapp.verify_token"))
			if token == "" || phoneNumberID == "" || verifyToken == "" {
				return fmt.Errorf("missing whatsapp.token, whatsapp.phone_number_id or whatsapp.verify_token " +
					"(set via config or PROPPULSE_WHATSAPP_* env)")
			}

			gdb, err := db.Open(db.Config{
				Driver: viper.GetString("db.driver"),
				DSN:    viper.GetString("db.dsn"),
				Pool: db.PoolConfig{
					MaxOpenConns:    viper.GetInt("db.pool.max_open_conns"),
					MaxIdleConns:    viper.GetInt("db.pool.max_idle_conns"),
					ConnMaxLifetime: viper.GetDuration("db.pool.conn_max_lifetime"),
				},
				SQLite: db.SQLiteConfig{
					BusyTimeoutMs: viper.GetInt("db.sqlite.busy_timeout_ms"),
					WAL:           viper.GetBool("db.sqlite.wal"),
					ForeignKeys:   viper.GetBool("db.sqlite.foreign_keys"),
				},
			})
			if err != nil {
				return err
			}

			sessions, err := session.NewStore(gdb, flagOrViperDuration(cmd, "session-ttl", "session.ttl"))
			if err != nil {
				return err
			}
			properties, err := property.NewStore(gdb)
			if err != nil {
				return err
			}
			scorer, err := scoring.NewScorer()
			if err != nil {
				return err
			}

			gateway := whatsapp.NewClient(nil, viper.GetString("whatsapp.base_url"), token, phoneNumberID)
			mediaStore, err := media.NewStore(
				viper.GetString("media.dir"),
				viper.GetString("server.public_url"),
				gateway,
				logger,
			)
			if err != nil {
				return err
			}

			llmClient := openai.New(
				viper.GetString("llm.endpoint"),
				viper.GetString("llm.api_key"),
				viper.GetString("llm.model"),
			)
			geo := geocoder.New(viper.GetString("geocoder.base_url"), viper.GetString("geocoder.user_agent"))

			engine, err := bot.New(bot.Options{
				Sessions:   sessions,
				Properties: properties,
				Finalizer:  finalize.New(properties, scorer, logger),
				Normalizer: normalize.New(nil, logger),
				Media:      mediaStore,
				Vision:     vision.New(llmClient, logger),
				Documents:  ocr.New(llmClient, logger),
				Geocoder:   geo,
				Content:    contentgen.New(llmClient, logger),
				Workflow:   workflow.New(viper.GetString("workflow.url"), viper.GetString("workflow.api_key")),
				Gateway:    gateway,
				Scorer:     scorer,
				Logger:     logger,
				Config: bot.Config{
					MinPhotos:   viper.GetInt("bot.min_photos"),
					MaxPhotos:   viper.GetInt("bot.max_photos"),
					PageSize:    viper.GetInt("bot.page_size"),
					RecentLimit: viper.GetInt("bot.recent_limit"),
				},
			})
			if err != nil {
				return err
			}

			rsp := &responder{engine: engine, gateway: gateway, logger: logger}
			router := worker.NewRouter(
				cmd.Context(),
				viper.GetInt("workers.max_concurrency"),
				viper.GetInt("workers.queue_size"),
				rsp.handle,
			)

			mux := http.NewServeMux()
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":   true,
					"time": time.Now().Format(time.RFC3339Nano),
				})
			})
			mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodGet:
					handleVerification(w, r, verifyToken)
				case http.MethodPost:
					handleWebhook(w, r, router, logger)
				default:
					http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				}
			})
			mux.HandleFunc("/workflow/callback", func(w http.ResponseWriter, r *http.Request) {
				handleWorkflowCallback(w, r, engine, viper.GetString("workflow.api_key"), logger)
			})
			mux.Handle("/media/", http.StripPrefix("/media/",
				http.FileServer(http.Dir(mediaStore.Dir()))))

			addr := bind + ":" + strconv.Itoa(port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			logger.Info("server_start", "addr", addr)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().String("server-bind", "0.0.0.0", "Bind address.")
	cmd.Flags().Int("server-port", 8080, "HTTP port to listen on.")
	cmd.Flags().Duration("session-ttl", 24*time.Hour, "Conversation expiry window.")

	return cmd
}

// handleVerification answers the channel's webhook subscribe handshake.
func handleVerification(w http.ResponseWriter, r *http.Request, verifyToken string) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" &&
		subtle.ConstantTimeCompare([]byte(q.Get("hub.verify_token")), []byte(verifyToken)) == 1 {
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

// handleWebhook decodes the notification and queues every event on its
// sender's worker. The channel retries on non-200, so malformed payloads
// are acknowledged and logged rather than bounced forever.
func handleWebhook(w http.ResponseWriter, r *http.Request, router *worker.Router[normalize.InboundEvent], logger *slog.Logger) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	events, err := whatsapp.ParseWebhook(body)
	if err != nil {
		logger.Warn("webhook_parse_failed", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}
	for _, ev := range events {
		if err := router.Enqueue(r.Context(), ev.From, ev); err != nil {
			logger.Warn("event_enqueue_failed", "identity", ev.From, "error", err.Error())
		}
	}
	w.WriteHeader(http.StatusOK)
}

type workflowCallback struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// handleWorkflowCallback receives completion signals from the registration
// backend.
func handleWorkflowCallback(w http.ResponseWriter, r *http.Request, engine *bot.Engine, apiKey string, logger *slog.Logger) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if apiKey != "" {
		got := strings.TrimSpace(r.Header.Get("Authorization"))
		want := "Bearer " + apiKey
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	var cb workflowCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil || strings.TrimSpace(cb.ExternalID) == "" {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := engine.CompleteRegistration(r.Context(), cb.ExternalID); err != nil {
		logger.Error("workflow_callback_failed", "external_id", cb.ExternalID, "error", err.Error())
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// responder runs one inbound event through the engine and pushes the
// resulting messages back out on the gateway.
type responder struct {
	engine  *bot.Engine
	gateway external.Gateway
	logger  *slog.Logger
}

func (r *responder) handle(ctx context.Context, ev normalize.InboundEvent) {
	// HandleEvent logs its own failures and hands back a fallback response,
	// so the error carries nothing actionable here.
	resp, _ := r.engine.HandleEvent(ctx, ev)
	for _, msg := range resp.Messages {
		var sendErr error
		if msg.ImageURL != "" {
			sendErr = r.gateway.SendImage(ctx, ev.From, msg.ImageURL, msg.Caption)
		} else {
			sendErr = r.gateway.SendText(ctx, ev.From, msg.Text)
		}
		if sendErr != nil {
			r.logger.Error("message_send_failed", "identity", ev.From, "error", sendErr.Error())
		}
	}
}

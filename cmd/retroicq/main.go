package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/dsiqueira/retroicq/internal/adapters/auth"
	httpadapter "github.com/dsiqueira/retroicq/internal/adapters/http"
	"github.com/dsiqueira/retroicq/internal/adapters/responder"
	firestorestore "github.com/dsiqueira/retroicq/internal/adapters/store/firestore"
	memstore "github.com/dsiqueira/retroicq/internal/adapters/store/memory"
	"github.com/dsiqueira/retroicq/internal/app/client"
	"github.com/dsiqueira/retroicq/internal/config"
	"github.com/dsiqueira/retroicq/internal/domain"
)

// geminiBot is the built-in bot contact, always online, never removable.
var geminiBot = domain.User{
	UIN:      "987654",
	Nickname: "GeminiBot",
	Email:    "ai@google.com",
	Presence: domain.PresenceOnline,
	IsBot:    true,
}

// consoleNotifier renders the sound hooks as log lines; a real front
// end swaps in actual audio.
type consoleNotifier struct{}

func (consoleNotifier) Alert() { log.Println("[SOUND] Uh-oh!") }
func (consoleNotifier) Sent()  { log.Println("[SOUND] *blip*") }

// consoleDiagnostics is the retro alert box, stderr edition.
type consoleDiagnostics struct{}

func (consoleDiagnostics) Report(msg string) { log.Printf("[ALERT] %s", msg) }

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// Remote store: Firestore or in-process memory
	var store domain.RemoteStore
	switch cfg.StoreBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore (project=%s)", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		defer fs.Close()
		store = fs
	default:
		log.Println("[STORE] Using in-memory store")
		store = memstore.NewStore()
	}

	// Bot responder: Gemini or canned replies
	var bot domain.Responder
	if cfg.UseMockBot {
		log.Println("[BOT] Using mock responder")
		bot = responder.NewMockResponder()
	} else {
		log.Printf("[BOT] Using Gemini responder (model=%s)", cfg.ModelName)
		g, err := responder.NewGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Gemini responder: %v", err)
		}
		bot = g
	}

	provider := auth.NewAnonymousProvider(store)

	ctrl := client.New(provider, store, bot, consoleNotifier{}, consoleDiagnostics{}, client.Config{
		Bots:         []domain.User{geminiBot},
		AlertWindow:  time.Duration(cfg.AlertWindowMillis) * time.Millisecond,
		UserLimit:    cfg.UserLimit,
		ContactLimit: cfg.ContactLimit,
		MessageLimit: cfg.MessageLimit,
	})

	handler := httpadapter.NewServer(ctrl)

	port := ":" + cfg.Port
	log.Println("retroicq client listening on port:", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatal(err)
	}
}

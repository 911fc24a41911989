// Command ollama-mock answers /api/chat like an Ollama server with a canned
// recipe, for local development of recipe generation.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/bakatarta/internal/logging"
)

const defaultDraft = `{
  "name": "Kladdkaka med hallon",
  "description": "En saftig kladdkaka med syrliga hallon.",
  "servings": "8 bitar",
  "prepTime": "PT15M",
  "cookingTime": "PT25M",
  "recipeCategory": "Kakor",
  "ingredients": [
    {"amount": "100", "unit": "g", "product": "smör"},
    {"amount": "2", "unit": "st", "product": "ägg"},
    {"amount": "2,5", "unit": "dl", "product": "strösocker"},
    {"amount": "1,5", "unit": "dl", "product": "vetemjöl"},
    {"amount": "4", "unit": "msk", "product": "kakao"},
    {"amount": "1", "unit": "dl", "product": "hallon"}
  ],
  "steps": [
    {"step": "Sätt ugnen på 175 grader."},
    {"step": "Smält smöret och rör ner övriga ingredienser."},
    {"step": "Häll smeten i en form, strö över hallon och grädda i 25 minuter."}
  ]
}`

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type chatResponse struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func main() {
	var (
		port  = flag.String("port", "11434", "port to listen on")
		data  = flag.String("data", "", "path to a JSON recipe returned for every prompt")
		delay = flag.Duration("delay", 0, "artificial latency per reply")
		fail  = flag.Bool("fail", false, "answer every request with 500")
	)
	flag.Parse()

	logger := logging.New(logging.Config{Format: "console"}).With().Str("component", "ollama-mock").Logger()

	draft := []byte(defaultDraft)
	if *data != "" {
		payload, err := os.ReadFile(*data)
		if err != nil {
			logger.Fatal().Err(err).Msg("read mock data")
		}
		if !json.Valid(payload) {
			logger.Fatal().Str("file", *data).Msg("mock data is not valid JSON")
		}
		draft = payload
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/api/chat", chatHandler(logger, string(draft), *delay, *fail))

	addr := ":" + *port
	logger.Info().Str("addr", addr).Msg("mock ollama listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func chatHandler(logger zerolog.Logger, draft string, delay time.Duration, fail bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		logger.Info().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("chat request")

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			http.Error(w, "model failed to load", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:     req.Model,
			CreatedAt: time.Now().UTC(),
			Message:   chatMessage{Role: "assistant", Content: draft},
			Done:      true,
		})
	}
}

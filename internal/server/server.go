// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/config"
	"github.com/ivlev/takeone/internal/engine"
)

const Version = "1.0.0"

type Server struct {
	engine *engine.Engine
	cfg    config.Config
	log    zerolog.Logger
}

func New(e *engine.Engine, cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{
		engine: e,
		cfg:    cfg,
		log:    logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, middleware.RealIP, Logger(s.log), middleware.Recoverer, CORS(s.cfg.CORSOrigins))

	r.Get("/", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Post("/intro/render", s.renderSegment(composer.Intro, introText, composer.MediaVideo))
		r.Post("/announcement/render", s.renderSegment(composer.Announcement, cardText, composer.MediaImage, composer.MediaAudio))
		r.Post("/how-it-works/render", s.renderSegment(composer.HowItWorks, cardText, composer.MediaAudio))
		r.Post("/persona/render", s.renderSegment(composer.Persona, personaText, composer.MediaImage, composer.MediaAudio))
		r.Post("/persona/chat", s.personaChat)
		r.Post("/persona/generate-image", s.personaImage)
		r.Post("/closing/render", s.renderSegment(composer.Closing, closingText, composer.MediaAudio))
		r.Post("/demo/render", s.renderSegment(composer.Demo, noText, composer.MediaVideo))

		r.Post("/concatenate-multipart", s.concatenate)
		r.Post("/trim", s.trim)
		r.Post("/audio/enhance", s.enhanceAudio)
		r.Post("/share-to-slack", s.shareToSlack)
		r.Post("/cs-share/process", s.processShare)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

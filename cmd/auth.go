package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tapedeck/internal/server"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// Auth runs the OAuth2 authorization code flow and saves the resulting tokens to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	svc, err := services.NewSpotifyServiceFromConfig(r.config, r.logger)
	if err != nil {
		return err
	}

	code, err := r.doOAuth(ctx, svc, cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := svc.Authenticate(ctx, map[string]string{"auth_code": code}); err != nil {
		return err
	}

	token := svc.Token()
	if err := r.saveTokens(token.AccessToken, token.RefreshToken); err != nil {
		return fmt.Errorf("authenticated but failed to save tokens: %w", err)
	}
	r.metadata = svc

	r.logger.Info("spotify authentication successful", "expires", token.Expiry.Format(time.RFC3339))
	return r.writePlain("✓ Authenticated with Spotify, tokens saved to %s\n", r.configPath)
}

// doOAuth serves the redirect URI locally, sends the user to the consent page and waits for the code.
func (r *Runner) doOAuth(ctx context.Context, svc *services.SpotifyService, noBrowser bool) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	handler := server.NewOAuthHandler(r.config.Credentials.Spotify.RedirectURI, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := server.NewCallbackServer(addr, router, r.logger)
	if err := srv.Start(); err != nil {
		return "", err
	}
	defer func() {
		if err := srv.Shutdown(ctx); err != nil {
			r.logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	authURL := svc.GetAuthURL(state)
	r.writePlain("Open this URL to authorize tapedeck:\n\n%s\n\n", authURL)
	if !noBrowser {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	go func() {
		select {
		case err := <-srv.Errors():
			r.logger.Error("callback server failed", "error", err)
			cancel()
		case <-waitCtx.Done():
		}
	}()

	r.logger.Info("waiting for authorization", "addr", srv.Addr(), "timeout", authTimeout)
	return handler.Wait(waitCtx)
}

// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Package cli implements the kamctl command line: list, details and the
// lifecycle commands, with French prompts and colored output.
//
// Every command resolves a token first (static key, else one minted from
// client credentials), then calls Kamatera once. A non-200 envelope prints
// "❌ Erreur: <message>" on stderr and exits 1.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/credentials"
	"github.com/tomtom215/kamctl/internal/kamatera"
)

// MessageNoCredentials is printed when no credential source is configured.
const MessageNoCredentials = "Aucune clé API trouvée. Définissez KAMATERA_API_KEY ou KAMATERA_CLIENT_ID + KAMATERA_SECRET"

// errReported marks an error whose message has already been printed.
var errReported = errors.New("reported")

// ClientFactory builds a server client bound to one token.
type ClientFactory func(token string) (kamatera.ServerClient, error)

// App carries the command dependencies. Zero-valued streams default to the
// process streams.
type App struct {
	Config *config.Config

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// NewClient defaults to kamatera.NewClient configured from Config.
	NewClient ClientFactory

	// TokenSource defaults to a kamatera.TokenProvider when client
	// credentials are configured.
	TokenSource kamatera.TokenSource

	in *bufio.Reader
}

func (a *App) defaults() {
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.Config == nil {
		a.Config = &config.Config{}
	}
}

// Execute runs the command line in args (without the program name) and
// returns the process exit code.
func (a *App) Execute(ctx context.Context, args []string) int {
	a.defaults()

	root := a.NewRootCommand()
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			a.printError(err.Error())
		}
		return 1
	}
	return 0
}

// client resolves a token and builds a client.
func (a *App) client(ctx context.Context) (kamatera.ServerClient, error) {
	kcfg := &a.Config.Kamatera

	source := a.TokenSource
	if source == nil && kcfg.HasClientCredentials() {
		source = kamatera.NewTokenProvider(kamatera.TokenProviderConfig{
			AuthURL:  kcfg.AuthURL,
			ClientID: kcfg.ClientID,
			Secret:   kcfg.Secret,
			Timeout:  kcfg.ReadTimeout,
		})
	}

	token, err := credentials.ResolveToken(ctx, kcfg, source)
	if errors.Is(err, credentials.ErrNoCredentials) {
		return nil, errors.New(MessageNoCredentials)
	}
	if err != nil {
		return nil, err
	}

	newClient := a.NewClient
	if newClient == nil {
		newClient = func(token string) (kamatera.ServerClient, error) {
			return kamatera.NewClient(token,
				kamatera.WithBaseURL(kcfg.BaseURL),
				kamatera.WithTimeouts(kcfg.ReadTimeout, kcfg.CloneTimeout),
			)
		}
	}

	c, err := newClient(token)
	if err != nil {
		return nil, fmt.Errorf("Impossible de créer le client Kamatera: %w", err) //nolint:staticcheck // user-facing message
	}
	return c, nil
}

// checkEnvelope prints the envelope message and returns errReported unless
// the status is exactly 200.
func (a *App) checkEnvelope(env kamatera.Envelope, fallback string) error {
	if env.Status == 200 {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = fallback
	}
	a.printError(msg)
	return errReported
}

// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kamctl/internal/kamatera"
)

const rootLong = `CLI pour gérer les serveurs Kamatera.

Variables d'environnement:
  KAMATERA_API_KEY                       Clé API directe
  OU
  KAMATERA_CLIENT_ID + KAMATERA_SECRET   Pour l'authentification par identifiants client`

const rootExample = `  kamctl list                    # Liste tous les serveurs
  kamctl list --json             # Liste en format JSON
  kamctl details <server_id>     # Détails d'un serveur
  kamctl start <server_id>       # Démarre un serveur
  kamctl stop <server_id>        # Arrête un serveur
  kamctl reboot <server_id>      # Redémarre un serveur
  kamctl destroy <server_id>     # Détruit un serveur
  kamctl start <server_id> -y    # Démarre sans confirmation`

// NewRootCommand builds the command tree bound to a.
func (a *App) NewRootCommand() *cobra.Command {
	a.defaults()

	root := &cobra.Command{
		Use:           "kamctl",
		Short:         "CLI pour gérer les serveurs Kamatera",
		Long:          rootLong,
		Example:       rootExample,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errReported
		},
	}

	root.AddCommand(
		a.newListCommand(),
		a.newDetailsCommand(),
	)
	for _, op := range powerOperations {
		root.AddCommand(a.newPowerCommand(op))
	}
	root.AddCommand(a.newDestroyCommand())

	return root
}

func (a *App) newListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Liste tous les serveurs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runList(cmd.Context(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Sortie en format JSON")
	return cmd
}

func (a *App) runList(ctx context.Context, asJSON bool) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	env := client.ListServers(ctx)
	if err := a.checkEnvelope(env, "Erreur lors de la récupération des serveurs"); err != nil {
		return err
	}

	if asJSON {
		return printJSON(a.Out, env.Data)
	}

	records := env.Records()
	a.printServerTable(records)
	a.printInfo("Total: %d serveur(s)", len(records))
	return nil
}

func (a *App) newDetailsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "details <server_id>",
		Short: "Affiche les détails d'un serveur",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetails(cmd.Context(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Sortie en format JSON")
	return cmd
}

func (a *App) runDetails(ctx context.Context, serverID string, asJSON bool) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	env := client.GetServer(ctx, serverID)
	if err := a.checkEnvelope(env, "Erreur lors de la récupération des détails"); err != nil {
		return err
	}

	server := env.First()
	if asJSON {
		if server == nil {
			server = map[string]any{}
		}
		return printJSON(a.Out, server)
	}
	a.printServerDetails(server)
	return nil
}

// powerOperation describes one confirm-then-call lifecycle command.
type powerOperation struct {
	use      string
	short    string
	question string // "%s" is the server id
	progress string // noun for "<progress> du serveur <id>..."
	done     string // past participle for the success line
	failure  string
	call     func(kamatera.ServerClient, context.Context, string) kamatera.Envelope
}

var powerOperations = []powerOperation{
	{
		use:      "start",
		short:    "Démarre un serveur",
		question: "Démarrer le serveur '%s'?",
		progress: "Démarrage",
		done:     "démarré",
		failure:  "Erreur lors du démarrage",
		call:     kamatera.ServerClient.StartServer,
	},
	{
		use:      "stop",
		short:    "Arrête un serveur",
		question: "Arrêter le serveur '%s'?",
		progress: "Arrêt",
		done:     "arrêté",
		failure:  "Erreur lors de l'arrêt",
		call:     kamatera.ServerClient.StopServer,
	},
	{
		use:      "reboot",
		short:    "Redémarre un serveur",
		question: "Redémarrer le serveur '%s'?",
		progress: "Redémarrage",
		done:     "redémarré",
		failure:  "Erreur lors du redémarrage",
		call:     kamatera.ServerClient.RebootServer,
	},
}

func (a *App) newPowerCommand(op powerOperation) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   op.use + " <server_id>",
		Short: op.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPower(cmd.Context(), op, args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirmer automatiquement")
	return cmd
}

func (a *App) runPower(ctx context.Context, op powerOperation, serverID string, yes bool) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	if !yes && !a.confirm(fmt.Sprintf(op.question, serverID)) {
		a.printWarning("Opération annulée")
		return nil
	}

	a.printInfo("%s du serveur %s...", op.progress, serverID)
	env := op.call(client, ctx, serverID)
	if err := a.checkEnvelope(env, op.failure); err != nil {
		return err
	}

	a.printSuccess("Serveur %s %s avec succès", serverID, op.done)
	return nil
}

func (a *App) newDestroyCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "destroy <server_id>",
		Short: "Détruit un serveur (irréversible)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDestroy(cmd.Context(), args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirmer automatiquement (dangereux!)")
	return cmd
}

func (a *App) runDestroy(ctx context.Context, serverID string, yes bool) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	if !yes {
		a.printWarning("ATTENTION: Cette action est IRRÉVERSIBLE!")
		if !a.confirm(fmt.Sprintf("Détruire le serveur '%s'?", serverID)) || !a.confirm("Confirmer la destruction?") {
			a.printWarning("Opération annulée")
			return nil
		}
	}

	a.printInfo("Destruction du serveur %s...", serverID)
	env := client.DeleteServer(ctx, serverID)
	if err := a.checkEnvelope(env, "Erreur lors de la destruction"); err != nil {
		return err
	}

	a.printSuccess("Serveur %s détruit avec succès", serverID)
	return nil
}

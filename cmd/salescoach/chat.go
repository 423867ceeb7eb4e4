package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"salescoach/internal/tui"
)

func newChatCmd() *cobra.Command {
	var personaName string
	var augmented bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Practice a sale against a simulated customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if personaName == "" {
				names := app.Personas().Names()
				if len(names) == 0 {
					return errors.New("no personas available")
				}
				personaName = names[0]
			}
			session, err := app.NewSession(personaName, augmented)
			if err != nil {
				return err
			}
			// the TUI owns the terminal
			prev := zerolog.GlobalLevel()
			zerolog.SetGlobalLevel(zerolog.Disabled)
			defer zerolog.SetGlobalLevel(prev)

			m := tui.New(cmd.Context(), session, app)
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return errors.Wrap(err, "run chat")
			}
			log.Info().Int("turns", session.Len()).Msg("chat finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&personaName, "persona", "p", "", "Customer persona name (see `salescoach personas`)")
	cmd.Flags().BoolVar(&augmented, "rag", false, "Ground customer replies in the product catalog")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hashpaste/internal/model"
	"hashpaste/internal/page"
	"hashpaste/internal/pasteapi"
	"hashpaste/internal/render"
	"hashpaste/internal/termui"
)

// errAlerted marks failures the page already reported to the user.
var errAlerted = errors.New("alerted")

// newPage wires a page controller to the terminal.
func (c *cli) newPage(api *pasteapi.Client) (*page.Controller, *termui.Terminal) {
	term := termui.New(c.stdout, c.stderr, api.PageURL)
	term.ShowStyles = c.verbose
	ctrl := page.New(term, term, api, render.NewTerminal(c.theme),
		page.WithLogger(c.logger),
		page.WithFadeDuration(c.fade),
	)
	return ctrl, term
}

func (c *cli) submitCmd() *cobra.Command {
	var lang string
	var show bool

	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Store a paste from a file or stdin and print its URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(c.stdin)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			if lang == "" && len(args) == 1 {
				lang = detectFromName(args[0])
			}

			ctrl, term := c.newPage(c.api())
			term.Quiet = !show
			defer ctrl.Wait()

			if err := ctrl.Init(cmd.Context()); err != nil {
				return err
			}
			if _, err := ctrl.Submit(cmd.Context(), string(text), lang); err != nil {
				if _, redirected := term.Redirected(); redirected {
					return fmt.Errorf("paste stored but could not be shown: %w", err)
				}
				return errAlerted
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "highlighting language (default plaintext, or guessed from the file name)")
	cmd.Flags().BoolVar(&show, "show", false, "print the paste after storing it")
	return cmd
}

func (c *cli) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <id|url>",
		Short: "Print a paste with syntax highlighting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := pasteapi.ParseRef(args[0])
			if err != nil {
				return err
			}
			ctrl, term := c.newPage(c.api())
			defer ctrl.Wait()

			term.SetFragment(id)
			if err := ctrl.Init(cmd.Context()); err != nil {
				if pasteapi.IsNotFound(err) {
					return fmt.Errorf("paste %s not found", id)
				}
				return err
			}
			return nil
		},
	}
}

func (c *cli) rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <id|url>",
		Short: "Print a paste's text exactly as stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.api().Raw(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = c.stdout.Write(b)
			return err
		},
	}
}

func (c *cli) langsCmd() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "List highlighting languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := c.api()
			var langs []string
			if remote {
				var err error
				if langs, err = api.Languages(cmd.Context()); err != nil {
					return err
				}
			} else {
				ctrl, _ := c.newPage(api)
				langs = ctrl.Languages()
			}
			for _, l := range langs {
				fmt.Fprintln(c.stdout, l)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the local highlighter")
	return cmd
}

// detectFromName guesses a language tag from a file name.
func detectFromName(name string) string {
	if tag := render.ForFilename(name); tag != "" {
		return tag
	}
	return model.PlainText
}

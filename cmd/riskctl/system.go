package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/facts"
)

func newSystemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Manage the systems in the portfolio",
		Long: `Create, register, inspect and edit the systems listed in the portfolio
manifest. Each system is a facts document on disk.

Subcommands:
  list    - List system ids
  create  - Create a system with an empty facts document
  add     - Register an existing facts file
  remove  - Drop a system from the portfolio
  show    - Print a system's facts
  set     - Answer a question
  unset   - Clear an answer`,
	}
	cmd.AddCommand(
		newSystemListCmd(a),
		newSystemCreateCmd(a),
		newSystemAddCmd(a),
		newSystemRemoveCmd(a),
		newSystemShowCmd(a),
		newSystemSetCmd(a),
		newSystemUnsetCmd(a),
	)
	return cmd
}

func newSystemListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List system ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := a.workspace().List()
			if ids == nil {
				ids = []string{}
			}
			return a.print(ids)
		},
	}
}

func newSystemCreateCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a system with an empty facts document",
		Long: `Create a system. The name is sanitized into an id: characters outside
[A-Za-z0-9_-] become "-". The facts file defaults to <systems_dir>/<id>.yaml
and is reused if it already exists.

Examples:
  riskctl system create "Payments API"
  riskctl system create billing --path teams/billing/facts.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.workspace().Create(args[0], path)
			if err != nil {
				return cli.NewCommandError("system create", err)
			}
			fmt.Fprintf(a.stdout, "Created system %s (%s)\n", sys.ID, sys.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "facts file path relative to the workspace root")
	return cmd
}

func newSystemAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <facts-file>",
		Short: "Register an existing facts file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.workspace().AddExisting(args[0])
			if err != nil {
				return cli.NewCommandError("system add", err)
			}
			fmt.Fprintf(a.stdout, "Added system %s (%s)\n", sys.ID, sys.Path)
			return nil
		},
	}
}

func newSystemRemoveCmd(a *app) *cobra.Command {
	var deleteFile bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Drop a system from the portfolio",
		Long: `Drop a system from the portfolio manifest. The facts file is kept unless
--delete is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.workspace()
			var err error
			if deleteFile {
				err = ws.Delete(args[0])
			} else {
				err = ws.Remove(args[0])
			}
			if err != nil {
				return cli.NewCommandError("system remove", err)
			}
			fmt.Fprintf(a.stdout, "Removed system %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFile, "delete", false, "also delete the facts file")
	return cmd
}

func newSystemShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a system's facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.workspace().Get(args[0])
			if err != nil {
				return cli.NewCommandError("system show", err)
			}
			if !a.textOutput() {
				return a.print(sys)
			}
			data, err := facts.Encode(sys.Facts)
			if err != nil {
				return cli.NewCommandError("system show", err)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}

func newSystemSetCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "set <id> <section.question> <value>",
		Short: "Answer a question",
		Long: `Set the answer at a dotted path. The value is parsed as YAML, so true,
42 and [eu, us] become a boolean, a number and a list.

Examples:
  riskctl system set payments-api base.uses_ai true
  riskctl system set payments-api data.regions "[eu, us]"
  riskctl system set payments-api base.exposure internal --reason "VPN only"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, path := args[0], args[1]
			if err := checkFactPath(path); err != nil {
				return err
			}
			var v facts.Value
			if err := yaml.Unmarshal([]byte(args[2]), &v); err != nil {
				return cli.NewConfigError("value", fmt.Sprintf("cannot parse %q: %v", args[2], err))
			}

			return a.updateSystem(id, func(f facts.Facts) facts.Facts {
				f = f.Set(path, v)
				if reason != "" {
					section, question, _ := strings.Cut(path, ".")
					f = f.SetReason(section, question, reason)
				}
				return f
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "record a justification for the answer")
	return cmd
}

func newSystemUnsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <id> <section.question>",
		Short: "Clear an answer and its justification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, path := args[0], args[1]
			if err := checkFactPath(path); err != nil {
				return err
			}
			return a.updateSystem(id, func(f facts.Facts) facts.Facts {
				section, question, _ := strings.Cut(path, ".")
				return f.Delete(path).SetReason(section, question, "")
			})
		},
	}
}

// checkFactPath accepts "section.question" paths outside the reasons map.
func checkFactPath(path string) error {
	section, question, ok := strings.Cut(path, ".")
	if !ok || section == "" || question == "" || strings.Contains(question, ".") {
		return cli.NewConfigError("path", fmt.Sprintf("%q is not a section.question path", path))
	}
	if facts.IsReasonsPath(path) {
		return cli.NewConfigError("path", "use --reason to record justifications")
	}
	return nil
}

func (a *app) updateSystem(id string, update func(facts.Facts) facts.Facts) error {
	ws := a.workspace()
	sys, err := ws.Get(id)
	if err != nil {
		return cli.NewCommandError("system", err)
	}
	if err := ws.Save(sys.ID, update(sys.Facts)); err != nil {
		return cli.NewCommandError("system", err)
	}
	fmt.Fprintf(a.stdout, "Updated system %s\n", sys.ID)
	return nil
}

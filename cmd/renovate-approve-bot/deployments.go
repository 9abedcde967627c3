/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mikelane/renovate-approve-bot/internal/deploy"
)

func newDeploymentsCommand(root *rootOptions) *cobra.Command {
	var env bool

	cmd := &cobra.Command{
		Use:   "deployments [name]",
		Short: "List deployments, or show one deployment's environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			deployments, err := deploy.Load(root.deploymentsFile)
			if err != nil {
				return err
			}
			selected, err := deploy.Select(deployments, name)
			if err != nil {
				return err
			}

			if env {
				return printEnvironment(cmd.OutOrStdout(), selected)
			}
			return printDeployments(cmd.OutOrStdout(), selected)
		},
	}

	cmd.Flags().BoolVar(&env, "env", false, "print the Lambda environment variables instead of a table")
	return cmd
}

func printDeployments(w io.Writer, deployments []deploy.Deployment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAPP\tSSM PATH")
	for _, d := range deployments {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.AppName, d.SSMPath)
	}
	return tw.Flush()
}

func printEnvironment(w io.Writer, deployments []deploy.Deployment) error {
	for i, d := range deployments {
		if len(deployments) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n", d.Name)
		}

		env := d.Environment()
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s=%s\n", k, env[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

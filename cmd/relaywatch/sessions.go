package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/axionhq/relaywatch/internal/session"
)

func sessionsCmd() *cobra.Command {
	var latest string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the project-to-session registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			lay, _ := resolveLayout()
			reg := session.New(lay, "", 0)

			if latest != "" {
				id := reg.Latest(latest)
				if id == "" {
					fmt.Printf("no indexed sessions for project %q\n", latest)
					return nil
				}
				fmt.Println(id)
				return nil
			}

			all := reg.All()
			if len(all) == 0 {
				fmt.Println("no saved sessions")
				return nil
			}
			projects := make([]string, 0, len(all))
			for p := range all {
				projects = append(projects, p)
			}
			sort.Strings(projects)
			for _, p := range projects {
				fmt.Printf("%-30s %s\n", p, all[p])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&latest, "latest", "", "print the most recent worker session id for a project")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/cfgseed/internal/events"
	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printAccount(w io.Writer, a *model.Account) {
	fmt.Fprintf(w, "ID:          %s\n", a.ID)
	fmt.Fprintf(w, "Username:    %s\n", a.Username)
	role := "user"
	if a.SuperAdmin {
		role = ui.RenderAccent("super-admin")
	}
	fmt.Fprintf(w, "Role:        %s\n", role)
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", a.CreatedAt.Format(timeLayout))
	}
}

func printConfigsTable(w io.Writer, configs []*model.ModelConfig) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCODE\tNAME\tENABLED\tSORT\tSETTINGS")
	for _, c := range configs {
		settings := string(c.Settings)
		if len(settings) > 50 {
			settings = settings[:47] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			c.ID, c.Category, c.Code, c.Name, c.Enabled, c.Sort, settings)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d configs\n", len(configs))
}

func printEventsTable(w io.Writer, evts []*model.Event) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tACTOR\tCREATED\tDETAILS")
	for _, e := range evts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Topic, e.Actor, e.CreatedAt.Format(timeLayout), eventDetails(e))
	}
	tw.Flush()
}

// eventDetails summarizes known payloads and falls back to the raw JSON.
func eventDetails(e *model.Event) string {
	switch e.Topic {
	case events.TopicConfigsInitialized:
		var p events.ConfigsInitialized
		if e.DecodePayload(&p) == nil {
			return fmt.Sprintf("copied %d of %d templates from %s (%d filtered, policy %s)",
				p.Copied, p.Templates, p.OwnerID, p.Filtered, p.PolicyVersion)
		}
	case events.TopicAccountCreated:
		var p events.AccountCreated
		if e.DecodePayload(&p) == nil && p.Account != nil {
			if p.SkipDefaults {
				return fmt.Sprintf("created %s (defaults skipped)", p.Account.Username)
			}
			return "created " + p.Account.Username
		}
	}
	return string(e.Payload)
}

func printPolicy(w io.Writer, p *policy.Policy) {
	fmt.Fprintf(w, "Version:     %s\n", p.Version)
	fmt.Fprintln(w, "Allow-lists:")
	for _, cat := range model.AllowListCategories() {
		codes, ok := p.Allow[string(cat)]
		if !ok {
			continue
		}
		list := ui.RenderMuted("(none)")
		if len(codes) > 0 {
			list = strings.Join(codes, ", ")
		}
		fmt.Fprintf(w, "  %-5s      %s\n", cat, list)
	}
	fmt.Fprintf(w, "Sensitive:   %s\n", strings.Join(p.SensitiveFields, ", "))
}

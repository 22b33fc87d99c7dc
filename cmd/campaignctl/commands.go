package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/campaign-vault/backend/internal/ingest"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/models"
	"github.com/campaign-vault/backend/internal/services"
	"github.com/spf13/cobra"
)

func newFieldsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the canonical contact fields and their header aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tREQUIRED\tALIASES")
			for _, f := range mapping.AllFields {
				fmt.Fprintf(w, "%s\t%t\t%s\n", f, f.Required(), strings.Join(c.deps.Mapper.Aliases(f), ", "))
			}
			return w.Flush()
		},
	}
}

func newProposeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "propose <file.csv>",
		Short: "Show the headers of a CSV file and the proposed field mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := c.pipeline.Preview(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d rows, headers: %s\n", p.Rows, strings.Join(p.Headers, ", "))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tHEADER")
			for _, f := range mapping.AllFields {
				header := p.Proposed[f]
				if header == "" {
					header = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", f, header)
			}
			return w.Flush()
		},
	}
}

// parseMapFlags turns repeated field=Header flags into a mapping. Without
// flags the proposal for headers is used.
func parseMapFlags(pairs []string) (mapping.FieldMapping, error) {
	fm := make(mapping.FieldMapping, len(pairs))
	for _, p := range pairs {
		field, header, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("--map %q: want field=Header", p)
		}
		fm[mapping.Field(strings.TrimSpace(field))] = header
	}
	return fm, nil
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		name  string
		pairs []string
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Encrypt and store a CSV file as a new campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			fm, err := parseMapFlags(pairs)
			if err != nil {
				return err
			}
			if len(fm) == 0 {
				p, err := c.pipeline.Preview(data)
				if err != nil {
					return err
				}
				fm = p.Proposed
			}

			res, err := c.pipeline.Ingest(cmd.Context(), ingest.Request{
				CampaignName: name,
				CSV:          data,
				Mapping:      fm,
				Actor:        cliActor,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "campaign %d %q created with %d contacts\n", res.Campaign.ID, res.Campaign.Name, res.Rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Campaign name (required)")
	cmd.Flags().StringArrayVar(&pairs, "map", nil, "Field mapping as field=Header, repeatable (default: proposed mapping)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List campaigns, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.campaigns.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tUPLOADED\tCONTACTS")
			for _, cp := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", cp.ID, cp.Name, cp.UploadDate.Format("2006-01-02 15:04"), cp.ContactCount)
			}
			return w.Flush()
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid campaign id %q", s)
	}
	return id, nil
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <campaign-id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cp, err := c.campaigns.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cp)
		},
	}
}

func newContactsCmd(c *cli) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "contacts <campaign-id>",
		Short: "Print a page of decrypted contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			l, o := services.NormalizePage(limit, offset)
			contacts, err := c.contacts.ListContacts(cmd.Context(), id, l, o)
			if err != nil {
				return err
			}
			return writeContacts(cmd.OutOrStdout(), contacts)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", services.DefaultPageSize, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Contacts to skip")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <campaign-id> <term>",
		Short: "Case-insensitive substring search over names, email, company and title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			contacts, err := c.contacts.Search(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			if len(contacts) >= services.SearchLimit {
				fmt.Fprintf(cmd.ErrOrStderr(), "showing the first %d matches\n", services.SearchLimit)
			}
			return writeContacts(cmd.OutOrStdout(), contacts)
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <campaign-id>",
		Short: "Delete a campaign and all of its contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.campaigns.Delete(cmd.Context(), id, cliActor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "campaign %d deleted\n", id)
			return nil
		},
	}
}

func writeContacts(w io.Writer, contacts []models.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIRST\tLAST\tEMAIL\tCOMPANY\tTITLE")
	for _, ct := range contacts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", ct.ID, ct.FirstName, ct.LastName, ct.Email, ct.Company, ct.Title)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

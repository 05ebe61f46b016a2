package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"labdesk/internal/app"
	"labdesk/internal/config"
	"labdesk/internal/db"
	"labdesk/internal/engine"
	"labdesk/internal/migrate"
	"labdesk/internal/repo"
	"labdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ld",
	Short: "Labdesk CLI",
	Long: `Labdesk is the back office for a testing laboratory: client and project
directory, request-for-information (RFI) threads, sample receipt
verification, and quotations.
- Workspace: your .labdesk directory with the database; config is stored in
  the DB and imported from labdesk.yml.
- Directory: clients, their contact persons, lab departments and personnel,
  and projects linking a client to its contacts.
- RFI: a question thread between lab and client. Statuses go
  open -> in_progress -> resolved; marking an official response resolves it.
- Receipts: sample intake records verified draft -> submitted ->
  approved/rejected, then sent to the client for acknowledgement.
- Quotations: numbered drafts that get issued, accepted or declined, with
  revisions linked to their parent.
- Event log: diary of changes, view with 'ld log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("LABDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("lab", "", "lab id (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("lab", rootCmd.PersistentFlags().Lookup("lab"))
}

func registerCommands() {
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(departmentCmd())
	rootCmd.AddCommand(personnelCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(rfiCmd())
	rootCmd.AddCommand(receiptCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(rbacCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func clientCmd() *cobra.Command {
	c := &cobra.Command{Use: "client", Short: "Manage clients"}
	c.AddCommand(clientCreateCmd())
	c.AddCommand(clientListCmd())
	c.AddCommand(clientShowCmd())
	c.AddCommand(clientUpdateCmd())
	return c
}

func clientCreateCmd() *cobra.Command {
	var opts engine.ClientCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateClient(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "client id (optional)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "client name")
	cmd.Flags().StringVar(&opts.Address, "address", "", "address")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func clientListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				clients, err := e.Repo.ListClients(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(clients)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Status"})
				for _, c := range clients {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Email, c.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (active, archived)")
	return cmd
}

func clientShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Repo.GetClient(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func clientUpdateCmd() *cobra.Command {
	var name, address, email, phone, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.UpdateClient(ctx, args[0],
					changedString(cmd, "name", &name),
					changedString(cmd, "address", &address),
					changedString(cmd, "email", &email),
					changedString(cmd, "phone", &phone),
					changedString(cmd, "status", &status),
					viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "client name")
	cmd.Flags().StringVar(&address, "address", "", "address")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&status, "status", "", "status (active, archived)")
	return cmd
}

func contactCmd() *cobra.Command {
	c := &cobra.Command{Use: "contact", Short: "Manage client contact persons"}
	c.AddCommand(contactAddCmd())
	c.AddCommand(contactListCmd())
	c.AddCommand(contactDeleteCmd())
	return c
}

func contactAddCmd() *cobra.Command {
	var opts engine.ContactCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact person to a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateContact(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "contact id (optional)")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "contact name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&opts.Title, "title", "", "job title")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func contactListCmd() *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contact persons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				contacts, err := e.Repo.ListContacts(ctx, clientID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(contacts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Client", "Name", "Email", "Title"})
				for _, c := range contacts {
					tw.AppendRow(table.Row{c.ID, c.ClientID, c.Name, c.Email, c.Title})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id filter")
	return cmd
}

func contactDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteContact(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func departmentCmd() *cobra.Command {
	d := &cobra.Command{Use: "department", Short: "Manage lab departments"}
	d.AddCommand(departmentCreateCmd())
	d.AddCommand(departmentListCmd())
	return d
}

func departmentCreateCmd() *cobra.Command {
	var opts engine.DepartmentCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDepartment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "department id (optional)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "department name")
	cmd.Flags().StringVar(&opts.ManagerID, "manager", "", "manager personnel id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func departmentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListDepartments(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func personnelCmd() *cobra.Command {
	p := &cobra.Command{Use: "personnel", Short: "Manage lab personnel"}
	p.AddCommand(personnelCreateCmd())
	p.AddCommand(personnelListCmd())
	p.AddCommand(personnelStatusCmd())
	return p
}

func personnelCreateCmd() *cobra.Command {
	var opts engine.PersonnelCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register lab personnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreatePersonnel(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "personnel id (optional)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.DepartmentID, "department", "", "department id")
	cmd.Flags().StringVar(&opts.Role, "role", "", "job role")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func personnelListCmd() *cobra.Command {
	var departmentID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				people, err := e.Repo.ListPersonnel(ctx, departmentID, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(people)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Department", "Status"})
				for _, p := range people {
					dept := ""
					if p.DepartmentID != nil {
						dept = *p.DepartmentID
					}
					tw.AppendRow(table.Row{p.ID, p.Name, p.Role, dept, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&departmentID, "department", "", "department filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter (active, inactive)")
	return cmd
}

func personnelStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Activate or deactivate personnel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetPersonnelStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (active, inactive)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func projectCmd() *cobra.Command {
	p := &cobra.Command{Use: "project", Short: "Manage projects"}
	p.AddCommand(projectCreateCmd())
	p.AddCommand(projectListCmd())
	p.AddCommand(projectShowCmd())
	p.AddCommand(projectUpdateCmd())
	p.AddCommand(projectContactsCmd())
	return p
}

func projectCreateCmd() *cobra.Command {
	var opts engine.ProjectCreateOptions
	var contacts []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project for a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.ContactPersons = contacts
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "project id (optional)")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringArrayVar(&contacts, "contact", []string{}, "contact person id (repeatable)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var clientID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projects, err := e.Repo.ListProjects(ctx, clientID, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Client", "Name", "Status"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.ClientID, p.Name, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var name, description, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, args[0],
					changedString(cmd, "name", &name),
					changedString(cmd, "description", &description),
					changedString(cmd, "status", &status),
					viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status (active, completed, archived)")
	return cmd
}

func projectContactsCmd() *cobra.Command {
	var contacts []string
	cmd := &cobra.Command{
		Use:   "set-contacts <id>",
		Short: "Replace the project's contact list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetProjectContacts(ctx, args[0], contacts, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringArrayVar(&contacts, "contact", []string{}, "contact person id (repeatable)")
	return cmd
}

func rfiCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "rfi",
		Short: "Manage requests for information",
		Long: `An RFI is a question thread between lab and client. The initiation type
decides who participates: internal_internal stays inside the lab,
internal_external goes from lab to client contacts, external_internal comes
in from a client contact. The first reply moves it to in_progress; marking a
message as the official response resolves it.`,
	}
	r.AddCommand(rfiCreateCmd())
	r.AddCommand(rfiListCmd())
	r.AddCommand(rfiShowCmd())
	r.AddCommand(rfiReplyCmd())
	r.AddCommand(rfiOfficialCmd())
	r.AddCommand(rfiStatusCmd())
	r.AddCommand(rfiDeleteCmd())
	return r
}

func rfiCreateCmd() *cobra.Command {
	var opts engine.RFICreateOptions
	var labReceivers, clientReceivers []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open an RFI",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.LabReceivers = labReceivers
			opts.ClientReceivers = clientReceivers
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rfi, err := e.CreateRFI(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rfi)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "rfi id (optional)")
	cmd.Flags().StringVar(&opts.InitiationType, "type", "", "initiation type (internal_internal, internal_external, external_internal)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "subject")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&opts.LabInitiator, "lab-initiator", "", "initiating personnel id")
	cmd.Flags().StringVar(&opts.ClientInitiator, "client-initiator", "", "initiating contact id")
	cmd.Flags().StringArrayVar(&labReceivers, "lab-receiver", []string{}, "receiving personnel id (repeatable)")
	cmd.Flags().StringArrayVar(&clientReceivers, "client-receiver", []string{}, "receiving contact id (repeatable)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func rfiListCmd() *cobra.Command {
	var f repo.RFIFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List RFIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rfis, err := e.Repo.ListRFIs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rfis)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Subject", "Status", "Submitted"})
				for _, r := range rfis {
					tw.AppendRow(table.Row{r.ID, r.InitiationType, r.Subject, r.Status, r.DateSubmitted})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.ClientID, "client", "", "client filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.InitiationType, "type", "", "initiation type filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func rfiShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an RFI with conversation and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rfi, err := e.Repo.GetRFI(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rfi)
			})
		},
	}
	return cmd
}

func rfiReplyCmd() *cobra.Command {
	var opts engine.MessageOptions
	cmd := &cobra.Command{
		Use:   "reply <id>",
		Short: "Append a message to the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RFIID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				msg, err := e.AppendMessage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(msg)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Message, "message", "", "message text")
	cmd.Flags().StringVar(&opts.SenderID, "sender", "", "sender id (personnel or contact)")
	cmd.Flags().BoolVar(&opts.SentByClient, "from-client", false, "sender is a client contact")
	_ = cmd.MarkFlagRequired("sender")
	return cmd
}

func rfiOfficialCmd() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "official <id> <message-key>",
		Short: "Mark a message as the official response (resolves the RFI)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rfi, err := e.SetOfficialResponse(ctx, args[0], args[1], !unset, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(rfi)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the official flag instead")
	return cmd
}

func rfiStatusCmd() *cobra.Command {
	var opts engine.StatusUpdateOptions
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Update RFI status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RFIID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if opts.ChangedBy == "" {
				opts.ChangedBy = opts.ActorID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rfi, err := e.UpdateStatus(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rfi)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "new status (open, in_progress, resolved)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason (required to reopen)")
	cmd.Flags().StringVar(&opts.ChangedBy, "changed-by", "", "who changed it (defaults to actor)")
	cmd.Flags().StringVar(&opts.OfficialMessageKey, "official-message", "", "message key to mark official when resolving")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func rfiDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an RFI and its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteRFI(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func receiptCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "receipt",
		Short: "Manage sample receipts",
		Long: `Sample receipts record what arrived at the lab. They are verified
draft -> submitted -> approved/rejected; approved receipts are sent to the
client and acknowledged. Rejection requires a note when configured.`,
	}
	r.AddCommand(receiptCreateCmd())
	r.AddCommand(receiptListCmd())
	r.AddCommand(receiptShowCmd())
	r.AddCommand(receiptSampleCmd())
	r.AddCommand(receiptStatusCmd())
	r.AddCommand(receiptDeleteCmd())
	return r
}

func receiptCreateCmd() *cobra.Command {
	var opts engine.ReceiptCreateOptions
	var samples []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a sample receipt",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			for _, s := range samples {
				opts.Samples = append(opts.Samples, engine.SampleOptions{Description: s})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.CreateReceipt(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "receipt id (optional)")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&opts.ReceivedBy, "received-by", "", "receiving personnel id")
	cmd.Flags().StringArrayVar(&samples, "sample", []string{}, "sample description (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("received-by")
	return cmd
}

func receiptListCmd() *cobra.Command {
	var f repo.ReceiptFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sample receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				receipts, err := e.Repo.ListReceipts(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(receipts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Received By", "Samples", "Status"})
				for _, r := range receipts {
					tw.AppendRow(table.Row{r.ID, r.ProjectID, r.ReceivedBy, len(r.Samples), r.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.ClientID, "client", "", "client filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func receiptShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a receipt with samples and decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.Repo.GetReceipt(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func receiptSampleCmd() *cobra.Command {
	s := &cobra.Command{Use: "sample", Short: "Manage sample lines"}
	s.AddCommand(receiptSampleAddCmd())
	s.AddCommand(receiptSampleRemoveCmd())
	return s
}

func receiptSampleAddCmd() *cobra.Command {
	var opts engine.SampleOptions
	cmd := &cobra.Command{
		Use:   "add <receipt-id>",
		Short: "Add a sample line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				line, err := e.AddSample(ctx, args[0], opts, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(line)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "sample description")
	cmd.Flags().IntVar(&opts.Quantity, "quantity", 1, "quantity")
	cmd.Flags().StringVar(&opts.Condition, "condition", "", "condition on arrival")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func receiptSampleRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <receipt-id> <sample-id>",
		Short: "Remove a sample line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveSample(ctx, args[0], args[1], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func receiptStatusCmd() *cobra.Command {
	var opts engine.ReceiptStatusOptions
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Advance a receipt through verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ReceiptID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if opts.DecidedBy == "" {
				opts.DecidedBy = opts.ActorID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.UpdateReceiptStatus(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "new status")
	cmd.Flags().StringVar(&opts.Note, "note", "", "decision note (required to reject)")
	cmd.Flags().StringVar(&opts.DecidedBy, "decided-by", "", "deciding personnel id (defaults to actor)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func receiptDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an editable receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteReceipt(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func quoteCmd() *cobra.Command {
	q := &cobra.Command{
		Use:   "quote",
		Short: "Manage quotations",
		Long: `Quotations are numbered from a per-lab sequence, carry the configured
currency and tax, and move draft -> issued -> accepted/declined. Issued or
declined quotations can be revised into a linked draft.`,
	}
	q.AddCommand(quoteCreateCmd())
	q.AddCommand(quoteListCmd())
	q.AddCommand(quoteShowCmd())
	q.AddCommand(quoteStatusCmd())
	q.AddCommand(quoteReviseCmd())
	q.AddCommand(quoteDeleteCmd())
	return q
}

// parseItemFlag parses "description:qty:unit_price" with qty and price optional.
func parseItemFlag(raw string) (engine.QuotationItemOptions, error) {
	parts := strings.Split(raw, ":")
	it := engine.QuotationItemOptions{Description: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		if _, err := fmt.Sscanf(parts[1], "%g", &it.Quantity); err != nil {
			return it, fmt.Errorf("invalid quantity in %q", raw)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if _, err := fmt.Sscanf(parts[2], "%g", &it.UnitPrice); err != nil {
			return it, fmt.Errorf("invalid unit price in %q", raw)
		}
	}
	return it, nil
}

func quoteCreateCmd() *cobra.Command {
	var opts engine.QuotationCreateOptions
	var items []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Draft a quotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			for _, raw := range items {
				it, err := parseItemFlag(raw)
				if err != nil {
					return err
				}
				opts.Items = append(opts.Items, it)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.CreateQuotation(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "quotation id (optional)")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringArrayVar(&items, "item", []string{}, "line item as description:qty:unit_price (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func quoteListCmd() *cobra.Command {
	var f repo.QuotationFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				quotes, err := e.Repo.ListQuotations(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(quotes)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Number", "Project", "Status", "Total", "Currency"})
				for _, q := range quotes {
					tw.AppendRow(table.Row{q.Number, q.ProjectID, q.Status, q.Total, q.Currency})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.ClientID, "client", "", "client filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func quoteShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a quotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.Repo.GetQuotation(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	return cmd
}

func quoteStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Issue, accept or decline a quotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.SetQuotationStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (issued, accepted, declined)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func quoteReviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revise <id>",
		Short: "Create a draft revision of a quotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.ReviseQuotation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	return cmd
}

func quoteDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft quotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteQuotation(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage lab config",
		Long:  "Config is the lab rulebook stored in the DB: billing currency and numbering, receipt rules, RBAC roles, and webhooks. Import from labdesk.yml.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import lab config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cfg, err := app.ImportConfig(ctx, filePath, r)
				if err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configInitCmd() *cobra.Command {
	var labID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default labdesk.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(labID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&labID, "lab-id", "default-lab", "lab id")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func rbacCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "RBAC management",
	}
	cmd.AddCommand(rbacWhoamiCmd())
	cmd.AddCommand(rbacGrantCmd())
	cmd.AddCommand(rbacRevokeCmd())
	return cmd
}

func rbacWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show current actor roles and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID := viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tx, err := e.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				roles, err := e.Auth.ActorRoles(ctx, tx, actorID)
				if err != nil {
					return err
				}
				perms, err := e.Auth.ActorPermissions(ctx, tx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"actor_id":    actorID,
					"roles":       roles,
					"permissions": perms,
				})
			})
		},
	}
	return cmd
}

func rbacGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant a role to an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tx, err := e.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := e.Auth.AssignRole(ctx, tx, target, role); err != nil {
					return err
				}
				return tx.Commit()
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func rbacRevokeCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "revoke-role",
		Short: "Revoke a role from an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tx, err := e.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := e.Auth.UnassignRole(ctx, tx, target, role); err != nil {
					return err
				}
				return tx.Commit()
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "role id")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: directory changes, RFI activity, receipt decisions, quotation moves.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	var insecureLocal bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveConfig(cmd.Context(), workspace, viper.GetString("lab"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("LABDESK_JWT_SECRET")}
			if insecureLocal {
				authCfg.InsecureLocalActor = viper.GetString("actor-id")
			} else if authCfg.JWTSecret == "" {
				return fmt.Errorf("LABDESK_JWT_SECRET is required (or pass --insecure-local for development)")
			}
			handler := server.New(server.Config{Engine: e, Auth: authCfg})
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Labdesk API on http://%s/v1 (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&insecureLocal, "insecure-local", false, "serve unauthenticated requests as the local actor (dev only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveConfig(ctx, workspace, viper.GetString("lab"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func changedString(cmd *cobra.Command, flag string, v *string) *string {
	if cmd.Flags().Changed(flag) {
		return v
	}
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

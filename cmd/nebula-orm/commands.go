package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-orm/internal/blog"
	"github.com/ajitpratap0/nebula-orm/pkg/json"
	"github.com/ajitpratap0/nebula-orm/pkg/models"
	"github.com/ajitpratap0/nebula-orm/pkg/schema"
)

func lookupSchema(name string) (*schema.Schema, error) {
	s, ok := schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(schema.Names(), ", "))
	}
	return s, nil
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [model]",
		Short: "Print statement templates and DDL of the registered models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := blog.Schemas()
			if len(args) == 1 {
				s, err := lookupSchema(args[0])
				if err != nil {
					return err
				}
				schemas = []*schema.Schema{s}
			}
			for i, s := range schemas {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				printSchema(a, s)
			}
			return nil
		},
	}
}

func printSchema(a *app, s *schema.Schema) {
	fmt.Fprintln(a.out, s.String())
	for _, attr := range s.Attributes() {
		f, _ := s.Field(attr)
		f.Name, _ = s.Column(attr)
		fmt.Fprintf(a.out, "  %-12s %s\n", attr, f.String())
	}
	fmt.Fprintf(a.out, "  select: %s\n", s.SelectSQL())
	fmt.Fprintf(a.out, "  insert: %s\n", s.InsertSQL())
	if s.UpdateSQL() != "" {
		fmt.Fprintf(a.out, "  update: %s\n", s.UpdateSQL())
	}
	fmt.Fprintf(a.out, "  delete: %s\n", s.DeleteSQL())
	fmt.Fprintln(a.out, s.CreateTableSQL())
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Open the connection pool and report its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context()
			defer cancel()

			exec, cleanup, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := exec.RunQuery(ctx, "select 1", nil, 1); err != nil {
				return err
			}
			fmt.Fprintln(a.out, exec.Pool().Stats().String())
			return nil
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	var (
		where string
		args  []string
	)
	cmd := &cobra.Command{
		Use:   "count <model>",
		Short: "Count the rows of a model's table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, names []string) error {
			s, err := lookupSchema(names[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()
			exec, cleanup, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := models.NewTable(s, exec, a.log).Count(ctx, where, toAny(args)...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "Where clause with ? placeholders")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Value bound to the next placeholder of --where (repeatable)")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var (
		opts          models.FindOptions
		args          []string
		limit, offset int
		pretty        bool
	)
	cmd := &cobra.Command{
		Use:   "find <model>",
		Short: "Print matching records as line-delimited JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, names []string) error {
			s, err := lookupSchema(names[0])
			if err != nil {
				return err
			}
			opts.Args = toAny(args)
			if limit > 0 {
				opts.Limit = models.Range{Offset: offset, Count: limit}
			}

			ctx, cancel := a.context()
			defer cancel()
			exec, cleanup, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := models.NewTable(s, exec, a.log).FindAll(ctx, opts)
			if err != nil {
				return err
			}

			enc := json.NewStreamingEncoder(a.out, false)
			if pretty {
				enc.SetPretty("  ")
			}
			for _, r := range records {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&opts.Where, "where", "", "Where clause with ? placeholders")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Value bound to the next placeholder of --where (repeatable)")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", "", "Order by clause")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip, used with --limit")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}

func (a *app) demoCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Save a sample user and read it back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context()
			defer cancel()
			exec, cleanup, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			users := models.NewTable(blog.UserSchema, exec, a.log)
			u, err := users.New(map[string]any{
				"name":  name,
				"email": email,
				"image": "about:blank",
			})
			if err != nil {
				return err
			}
			if _, err := u.Save(ctx); err != nil {
				return err
			}

			saved, err := users.Find(ctx, u.GetValue("id"))
			if err != nil {
				return err
			}
			if saved == nil {
				a.log.Warn("saved user not found", zap.Any("id", u.GetValue("id")))
				saved = u
			}
			out, err := json.MarshalIndent(saved, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Test1", "Name of the sample user")
	cmd.Flags().StringVar(&email, "email", "test1@example.com", "Email of the sample user")
	return cmd
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

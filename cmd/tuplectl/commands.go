package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/danmuck/tuplectl/internal/client"
	"github.com/danmuck/tuplectl/internal/tuple"
	"github.com/goccy/go-json"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type matchFunc func(ctx context.Context, c *client.Client, tmpl tuple.Tuple) (tuple.Tuple, bool, error)

func matchGet(ctx context.Context, c *client.Client, tmpl tuple.Tuple) (tuple.Tuple, bool, error) {
	t, err := c.Get(ctx, tmpl)
	return t, err == nil, err
}

func matchRead(ctx context.Context, c *client.Client, tmpl tuple.Tuple) (tuple.Tuple, bool, error) {
	t, err := c.Read(ctx, tmpl)
	return t, err == nil, err
}

func matchGetNB(ctx context.Context, c *client.Client, tmpl tuple.Tuple) (tuple.Tuple, bool, error) {
	return c.GetNonBlocking(ctx, tmpl)
}

func matchReadNB(ctx context.Context, c *client.Client, tmpl tuple.Tuple) (tuple.Tuple, bool, error) {
	return c.ReadNonBlocking(ctx, tmpl)
}

func parseTuples(args []string) ([]tuple.Tuple, error) {
	out := make([]tuple.Tuple, 0, len(args))
	for i, arg := range args {
		t, err := tuple.ParseTuple(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *app) printTuple(t tuple.Tuple) error {
	if !a.asJSON {
		_, err := fmt.Fprintln(a.out, t.String())
		return err
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put TUPLE...",
		Short: "Insert one or more tuples",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuples, err := parseTuples(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			for _, t := range tuples {
				if err := a.client.Put(ctx, t); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMatchCmd(a *app, use, short string, fn matchFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " TEMPLATE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := tuple.ParseTuple(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			t, found, err := fn(ctx, a.client, tmpl)
			if err != nil {
				return err
			}
			if !found {
				_, err := fmt.Fprintln(a.out, "no match")
				return err
			}
			return a.printTuple(t)
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [TEMPLATE...]",
		Short: "Print every tuple matching any TEMPLATE, or the whole space",
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpls, err := parseTuples(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			tuples, err := a.client.Dump(ctx, tmpls...)
			if err != nil {
				return err
			}
			if a.asJSON {
				b, err := json.Marshal(tuples)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			}
			return renderDump(a, tuples)
		},
	}
}

func renderDump(a *app, tuples []tuple.Tuple) error {
	if len(tuples) == 0 {
		_, err := fmt.Fprintln(a.out, "no tuples")
		return err
	}
	data := pterm.TableData{{"#", "Arity", "Tuple"}}
	for i, t := range tuples {
		data = append(data, []string{strconv.Itoa(i + 1), strconv.Itoa(len(t)), t.String()})
	}
	table, err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, table)
	return err
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count [TEMPLATE...]",
		Short: "Count tuples matching any TEMPLATE, or the whole space",
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpls, err := parseTuples(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			n, err := a.client.Count(ctx, tmpls...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, n)
			return err
		},
	}
}

func newReplaceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replace OLD NEW",
		Short: "Replace a tuple matching OLD with NEW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuples, err := parseTuples(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			return a.client.Replace(ctx, tuples[0], tuples[1])
		},
	}
}

func newLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the server operation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			text, err := a.client.Log(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(a.out, text)
			return err
		},
	}
}

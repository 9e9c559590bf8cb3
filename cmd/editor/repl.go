package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
)

const helpText = `Commands (rows are numbered from 1):
  set <row> <field> <value>   edit a cell; an empty value clears it
  add                         append a blank row
  rm <row> [row...]           remove rows
  clear                       remove every row
  undo | redo                 step through history
  accept <row> <field>        take the AI suggestion for a cell
  suggest                     ask for suggestions on every named row
  fill                        list values the AI would give empty cells
  import <file.json>          replace the list with a JSON array of rows
  export                      print the named rows as JSON
  show                        print the list
  status                      list invalid and warning cells
  stats                       item and weight totals
  quit`

// #region repl
func (s *session) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := s.exec(ctx, line, out); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func (s *session) exec(ctx context.Context, line string, out io.Writer) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(out, helpText)
	case "set":
		if len(args) < 2 {
			return errors.New("usage: set <row> <field> <value>")
		}
		row, err := rowArg(args[0])
		if err != nil {
			return err
		}
		value := record.Parse(strings.Join(args[2:], " "))
		res, err := s.store.ApplyEdit(row, args[1], value)
		if err != nil {
			return err
		}
		s.coord.Wait()
		if res.Valid {
			fmt.Fprintf(out, "row %d %s = %s\n", row+1, args[1], value)
		} else {
			fmt.Fprintf(out, "row %d %s = %s (invalid: %s)\n", row+1, args[1], value, res.Message)
		}
		s.printAIMarks(out, row)
	case "add":
		fmt.Fprintf(out, "added row %d\n", s.store.AddRecord()+1)
	case "rm":
		if len(args) == 0 {
			return errors.New("usage: rm <row> [row...]")
		}
		rows := make([]int, len(args))
		for i, a := range args {
			r, err := rowArg(a)
			if err != nil {
				return err
			}
			rows[i] = r
		}
		if err := s.store.RemoveAt(rows...); err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d row(s)\n", len(rows))
	case "clear":
		s.store.Clear()
		fmt.Fprintln(out, "cleared")
	case "undo":
		if !s.store.Undo() {
			return errors.New("nothing to undo")
		}
		fmt.Fprintln(out, "undone")
	case "redo":
		if !s.store.Redo() {
			return errors.New("nothing to redo")
		}
		fmt.Fprintln(out, "redone")
	case "accept":
		if len(args) != 2 {
			return errors.New("usage: accept <row> <field>")
		}
		row, err := rowArg(args[0])
		if err != nil {
			return err
		}
		if _, err := s.store.Accept(row, args[1]); err != nil {
			return err
		}
		r, _ := s.store.Record(row)
		fmt.Fprintf(out, "row %d %s = %s\n", row+1, args[1], r.Get(args[1]))
	case "suggest":
		n, err := s.coord.SuggestAll(ctx)
		if err != nil {
			return err
		}
		s.coord.Wait()
		fmt.Fprintf(out, "requested suggestions for %d row(s)\n", n)
	case "fill":
		return s.fill(ctx, out)
	case "import":
		if len(args) != 1 {
			return errors.New("usage: import <file.json>")
		}
		return s.importFile(ctx, args[0], out)
	case "export":
		data, err := json.MarshalIndent(s.store.GetAll(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "show":
		s.show(out)
	case "status":
		s.status(out)
	case "stats":
		st := s.store.Stats(schema.KeyQuantity, schema.KeyWeight)
		fmt.Fprintf(out, "unique items: %d | total items: %d | total weight: %.2f kg\n",
			st.UniqueItems, st.TotalItems, st.TotalWeight)
	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}

// rowArg converts a 1-based row argument to an index.
func rowArg(a string) (int, error) {
	n, err := strconv.Atoi(a)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad row %q", a)
	}
	return n - 1, nil
}

// #endregion repl

// #region output
func (s *session) printAIMarks(out io.Writer, row int) {
	th := s.coord.Thresholds()
	for _, key := range s.schema.AIAssisted() {
		if s.store.AIFilled(row, key) {
			r, _ := s.store.Record(row)
			fmt.Fprintf(out, "  ai filled %s = %s\n", key, r.Get(key))
			continue
		}
		if sg, ok := s.store.Suggestion(row, key); ok {
			fmt.Fprintf(out, "  suggestion %s = %s (%s, %.2f)\n", key, sg.Value, th.Level(sg.Confidence), sg.Confidence)
		}
	}
}

func (s *session) show(out io.Writer) {
	keys := s.schema.Keys()
	fmt.Fprintf(out, "%-4s", "#")
	for _, k := range keys {
		fmt.Fprintf(out, "  %-14s", k)
	}
	fmt.Fprintln(out)
	for i, r := range s.store.Records() {
		fmt.Fprintf(out, "%-4d", i+1)
		for _, k := range keys {
			cell := r.Get(k).String()
			if s.store.AIFilled(i, k) {
				cell += "*"
			}
			if res, ok := s.store.Validation(i, k); ok && !res.Valid {
				cell += "!"
			}
			fmt.Fprintf(out, "  %-14s", cell)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "(* ai filled, ! invalid)")
}

func (s *session) status(out io.Writer) {
	st := s.store.Status()
	if !st.HasIssues {
		fmt.Fprintln(out, "no issues")
		return
	}
	fmt.Fprintf(out, "%d issue(s) across %d item(s)\n", st.TotalIssues, st.ItemsAffected)
	for _, is := range st.Issues {
		fmt.Fprintf(out, "  %-7s %s: %s: %s\n", is.Severity, is.Label, is.Field, is.Message)
	}
}

func (s *session) fill(ctx context.Context, out io.Writer) error {
	got, err := s.coord.FillMissing(ctx)
	if err != nil {
		return err
	}
	if len(got) == 0 {
		fmt.Fprintln(out, "nothing to fill")
		return nil
	}
	th := s.coord.Thresholds()
	rows := make([]int, 0, len(got))
	for r := range got {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	for _, r := range rows {
		for _, key := range s.schema.AIAssisted() {
			if sg, ok := got[r][key]; ok {
				fmt.Fprintf(out, "row %d %s: %s (%s)\n", r+1, key, sg.Value, th.Level(sg.Confidence))
			}
		}
	}
	return nil
}

func (s *session) importFile(ctx context.Context, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var list record.List
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	n := s.store.Replace(list)
	fmt.Fprintf(out, "imported %d row(s)\n", n)
	if _, err := s.coord.SuggestAll(ctx); err != nil {
		return err
	}
	s.coord.Wait()
	return nil
}

// #endregion output

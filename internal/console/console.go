// Package console implements the line-oriented operator menu.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/JonasSouza871/rfid-catalog/internal/catalog"
	"github.com/JonasSouza871/rfid-catalog/internal/workflow"
)

// Console drives the synchronous workflow operations from a numbered menu.
// Its card waits block only the console itself; the poll loop and the HTTP
// handlers keep running.
type Console struct {
	svc         *workflow.Service
	in          *bufio.Scanner
	out         io.Writer
	cardTimeout time.Duration
	logger      *zap.Logger
}

// New creates a console over the given streams.
func New(svc *workflow.Service, in io.Reader, out io.Writer, cardTimeout time.Duration, logger *zap.Logger) *Console {
	return &Console{
		svc:         svc,
		in:          bufio.NewScanner(in),
		out:         out,
		cardTimeout: cardTimeout,
		logger:      logger,
	}
}

// Run loops over the menu until exit, EOF, or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	c.logger.Info("console started")
	title := color.New(color.FgCyan, color.Bold)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		title.Fprintln(c.out, "\n=== RFID Item Catalog ===")
		fmt.Fprintln(c.out, " 1) register item")
		fmt.Fprintln(c.out, " 2) identify item")
		fmt.Fprintln(c.out, " 3) list items")
		fmt.Fprintln(c.out, " 4) rename item")
		fmt.Fprintln(c.out, " 5) delete item")
		fmt.Fprintln(c.out, " 6) exit")
		fmt.Fprint(c.out, "> ")

		line, ok := c.readLine()
		if !ok {
			return nil
		}

		switch strings.TrimSpace(line) {
		case "1":
			c.register(ctx)
		case "2":
			c.identify(ctx)
		case "3":
			c.list()
		case "4":
			c.rename(ctx)
		case "5":
			c.delete()
		case "6", "exit", "q":
			return nil
		default:
			c.warn("unknown option")
		}
	}
}

// register waits for a card first, then asks for the name, so an operator is
// never asked to type a name for a tap that times out.
func (c *Console) register(ctx context.Context) {
	id, ok := c.awaitCard(ctx)
	if !ok {
		return
	}
	name, ok := c.prompt("item name: ")
	if !ok {
		return
	}
	idHex, err := c.svc.RegisterTag(id, name)
	switch {
	case errors.Is(err, catalog.ErrDuplicate):
		c.warn(fmt.Sprintf("card %s is already cataloged", idHex))
	case errors.Is(err, catalog.ErrFull):
		c.warn("catalog is full")
	case errors.Is(err, catalog.ErrInvalidName):
		c.warn("name must be 1-31 characters")
	case err != nil:
		c.warn(err.Error())
	default:
		color.New(color.FgGreen).Fprintf(c.out, "registered %q as %s\n", name, idHex)
	}
}

func (c *Console) identify(ctx context.Context) {
	id, ok := c.awaitCard(ctx)
	if !ok {
		return
	}
	name, idHex, err := c.svc.IdentifyTag(id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.warn(fmt.Sprintf("card %s is not cataloged", idHex))
	case err != nil:
		c.warn(err.Error())
	default:
		fmt.Fprintf(c.out, "%s -> %q\n", idHex, name)
	}
}

func (c *Console) list() {
	items := c.svc.Items()
	if len(items) == 0 {
		fmt.Fprintln(c.out, "catalog is empty")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"#", "Name", "Tag ID"})
	for i, it := range items {
		table.Append([]string{fmt.Sprintf("%d", i+1), it.Name, it.IDHex})
	}
	table.Render()
	fmt.Fprintf(c.out, "%d item(s)\n", len(items))
}

func (c *Console) rename(ctx context.Context) {
	id, ok := c.awaitCard(ctx)
	if !ok {
		return
	}
	name, ok := c.prompt("new name: ")
	if !ok {
		return
	}
	idHex, err := c.svc.RenameTag(id, name)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.warn(fmt.Sprintf("card %s is not cataloged", idHex))
	case errors.Is(err, catalog.ErrInvalidName):
		c.warn("name must be 1-31 characters")
	case err != nil:
		c.warn(err.Error())
	default:
		fmt.Fprintf(c.out, "renamed %s to %q\n", idHex, name)
	}
}

func (c *Console) delete() {
	idText, ok := c.prompt("tag id (e.g. 04:A1:B2:C3): ")
	if !ok {
		return
	}
	err := c.svc.DeleteByHex(idText)
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		c.warn("id must be colon-separated hex")
	case errors.Is(err, catalog.ErrNotFound):
		c.warn("tag not cataloged")
	case err != nil:
		c.warn(err.Error())
	default:
		fmt.Fprintf(c.out, "deleted %s\n", idText)
	}
}

// awaitCard announces the wait and blocks for a tap; a timeout or cancelled
// context is reported to the operator and aborts the operation.
func (c *Console) awaitCard(ctx context.Context) ([]byte, bool) {
	fmt.Fprintf(c.out, "present a card (%s)...\n", c.cardTimeout)
	id, err := c.svc.AwaitCard(ctx, c.cardTimeout)
	switch {
	case errors.Is(err, workflow.ErrCardTimeout):
		c.warn("no card detected")
		return nil, false
	case err != nil:
		c.warn(err.Error())
		return nil, false
	}
	return id, true
}

func (c *Console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	line, ok := c.readLine()
	return strings.TrimSpace(line), ok
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) warn(msg string) {
	color.New(color.FgYellow).Fprintln(c.out, msg)
}

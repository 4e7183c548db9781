package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/tendant/simple-registry/pkg/registry"
	"github.com/tendant/simple-registry/pkg/registry/api"
	"github.com/tendant/simple-registry/pkg/registry/config"
)

const usage = `Simple Registry Admin CLI

Inspects a registry database and mints caller tokens for the HTTP API.

USAGE:
  registry-admin <command> [options]

COMMANDS:
  token     Print a bearer token for an address
  contents  List contents with optional filtering
  proposals List governance proposals
  status    Show owner, pause flag, members and counts

ENVIRONMENT VARIABLES:
  REGISTRY_OWNER    Owner address (required)
  DATABASE_URL      memory, postgres://... or sqlite://path (default: memory)
  DB_SCHEMA         PostgreSQL schema name (default: registry)
  JWT_SECRET        Token signing secret

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # Token for a caller, valid for 24 hours
  registry-admin token --address=0x00000000000000000000000000000000000000a1 --ttl=24h

  # Contents by a creator, tagged music
  registry-admin contents --creator=0x... --tag=music --limit=10

  # Output as JSON
  registry-admin proposals --json
  registry-admin status --json

OPTIONS:
  --address=<hex>     Token subject (token only)
  --ttl=<duration>    Token lifetime, 0 for none (token only, default: 24h)
  --creator=<hex>     Filter by creator (contents only)
  --tag=<tag>         Filter by tag (contents only)
  --limit=<n>         Maximum results (contents only, default: 100)
  --offset=<n>        Pagination offset (contents only, default: 0)
  --json              Output as JSON
`

type options struct {
	address string
	ttl     time.Duration
	list    registry.ListContentsRequest
	asJSON  bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Println(usage)
		os.Exit(0)
	}

	opts, err := parseOptions(os.Args[2:])
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	if !knownCommand(command) {
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv(), config.WithEventLogging(false), config.WithMetrics(false))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	components, err := cfg.BuildService(ctx, nil)
	if err != nil {
		log.Fatalf("failed to build service: %v", err)
	}

	err = run(ctx, os.Stdout, command, components, opts)
	_ = components.Close()
	if err != nil {
		log.Fatal(err)
	}
}

func knownCommand(command string) bool {
	switch command {
	case "token", "contents", "proposals", "status":
		return true
	}
	return false
}

func run(ctx context.Context, out io.Writer, command string, components *config.Components, opts options) error {
	switch command {
	case "token":
		return handleToken(out, components, opts)
	case "contents":
		return handleContents(ctx, out, components.Service, opts)
	case "proposals":
		return handleProposals(ctx, out, components.Service, opts)
	case "status":
		return handleStatus(ctx, out, components.Service, opts)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func parseOptions(args []string) (options, error) {
	opts := options{ttl: 24 * time.Hour}

	for _, arg := range args {
		key, value := parseFlag(arg)

		switch key {
		case "json":
			opts.asJSON = true
		case "address":
			opts.address = value
		case "ttl":
			d, err := time.ParseDuration(value)
			if err != nil {
				return opts, fmt.Errorf("ttl: %w", err)
			}
			opts.ttl = d
		case "creator":
			if !common.IsHexAddress(value) {
				return opts, fmt.Errorf("creator %q is not an address", value)
			}
			creator := common.HexToAddress(value)
			opts.list.Creator = &creator
		case "tag":
			opts.list.Tag = value
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("limit: %w", err)
			}
			opts.list.Limit = n
		case "offset":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, fmt.Errorf("offset: %w", err)
			}
			opts.list.Offset = n
		}
	}

	return opts, nil
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func handleToken(out io.Writer, components *config.Components, opts options) error {
	if !common.IsHexAddress(opts.address) {
		return fmt.Errorf("--address must be a hex address")
	}
	token, err := api.IssueToken(components.TokenAuth, common.HexToAddress(opts.address), opts.ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if opts.asJSON {
		return printJSON(out, map[string]string{"address": common.HexToAddress(opts.address).Hex(), "token": token})
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func handleContents(ctx context.Context, out io.Writer, svc registry.Service, opts options) error {
	contents, err := svc.ListContents(ctx, opts.list)
	if err != nil {
		return fmt.Errorf("failed to list contents: %w", err)
	}

	if opts.asJSON {
		return printJSON(out, contents)
	}

	// Table output
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tCREATOR\tPRICE\tVIEWS\tRATING\tREVIEWS\n")
	for _, c := range contents {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
			c.ID,
			truncate(c.Title, 30),
			shortAddress(c.Creator),
			c.Price,
			c.Views,
			c.AverageRating(),
			c.TotalReviews,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d\n", len(contents))
	return nil
}

func handleProposals(ctx context.Context, out io.Writer, svc registry.Service, opts options) error {
	proposals, err := svc.ListProposals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list proposals: %w", err)
	}

	if opts.asJSON {
		return printJSON(out, proposals)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tPROPOSER\tVOTES\tEXECUTED\tDESCRIPTION\n")
	for _, p := range proposals {
		fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%s\n",
			p.ID,
			shortAddress(p.Proposer),
			p.Votes,
			p.Executed,
			truncate(p.Description, 40),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nTotal: %d\n", len(proposals))
	return nil
}

type status struct {
	Owner     common.Address   `json:"owner"`
	Paused    bool             `json:"paused"`
	Members   []common.Address `json:"members"`
	Quorum    uint64           `json:"quorum"`
	Contents  int              `json:"contents"`
	Proposals int              `json:"proposals"`
}

func handleStatus(ctx context.Context, out io.Writer, svc registry.Service, opts options) error {
	paused, err := svc.Paused(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pause flag: %w", err)
	}
	members, err := svc.ListGovernanceMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	contents, err := svc.ListContents(ctx, registry.ListContentsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list contents: %w", err)
	}
	proposals, err := svc.ListProposals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list proposals: %w", err)
	}

	s := status{
		Owner:     svc.Owner(),
		Paused:    paused,
		Members:   members,
		Quorum:    registry.Quorum(len(members)),
		Contents:  len(contents),
		Proposals: len(proposals),
	}

	if opts.asJSON {
		return printJSON(out, s)
	}

	fmt.Fprintln(out, "=== Registry Status ===")
	fmt.Fprintf(out, "\nOwner:     %s\n", s.Owner.Hex())
	fmt.Fprintf(out, "Paused:    %t\n", s.Paused)
	fmt.Fprintf(out, "Contents:  %d (first page)\n", s.Contents)
	fmt.Fprintf(out, "Proposals: %d\n", s.Proposals)
	fmt.Fprintf(out, "Quorum:    %d\n", s.Quorum)

	if len(s.Members) > 0 {
		fmt.Fprintln(out, "\nMembers:")
		for _, m := range s.Members {
			fmt.Fprintf(out, "  %s\n", m.Hex())
		}
	}
	return nil
}

func shortAddress(a common.Address) string {
	hex := a.Hex()
	return hex[:8] + "..." + hex[len(hex)-4:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

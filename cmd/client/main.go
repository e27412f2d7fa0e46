// auth-client signs in against the configured API and sends authorized
// requests through the gateway. Credentials persist in the configured store
// between invocations.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/credentials"
	"github.com/jrsteele09/go-auth-gateway/credentials/backends"
	"github.com/jrsteele09/go-auth-gateway/gateway"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	password string
	email    string
	verbose  bool
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("auth-client", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.password, "password", "p", "", "password for login and signup (read from stdin when empty)")
	flagSet.StringVar(&opts.email, "email", "", "email for signup")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging, including gateway metrics on exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(cfg, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo, closeRepo, err := backends.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Err(err).Msg("Failed to close credential store")
		}
	}()
	store := credentials.NewStore(repo)

	client := api.NewFromConfig(cfg)
	reg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(reg)
	defer logMetrics(reg)
	coordinator, err := gateway.NewCoordinator(store, client,
		gateway.WithRefreshTimeout(cfg.GetRefreshTimeout()),
		gateway.WithCoordinatorMetrics(metrics))
	if err != nil {
		return err
	}
	gw, err := gateway.New(cfg.GetAPIBaseURL(), store, coordinator,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		gateway.WithMetrics(metrics))
	if err != nil {
		return err
	}
	manager, err := session.NewManager(client, store,
		session.WithGateway(gw),
		session.WithOnSessionExpired(func(error) {
			fmt.Fprintln(os.Stderr, "Session expired, run 'auth-client login <username>' to sign in again.")
		}))
	if err != nil {
		return err
	}

	args := flagSet.Args()
	switch args[0] {
	case "login":
		if len(args) != 2 {
			return errors.New("usage: auth-client login <username>")
		}
		password, err := readPassword(opts.password)
		if err != nil {
			return err
		}
		cred, err := manager.Login(ctx, args[1], password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", cred.Identity)

	case "signup":
		if len(args) != 2 {
			return errors.New("usage: auth-client signup <username>")
		}
		password, err := readPassword(opts.password)
		if err != nil {
			return err
		}
		cred, err := manager.Signup(ctx, api.SignupRequest{
			Username:       args[1],
			Email:          opts.email,
			Password:       password,
			RepeatPassword: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Signed up as %s\n", cred.Identity)

	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out")

	case "status":
		if !manager.IsAuthenticated() {
			fmt.Println("Not signed in")
			return nil
		}
		identity, _ := manager.Identity()
		fmt.Printf("Signed in as %s\n", identity)

	case "whoami":
		user, err := manager.CurrentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Println(user.Username)

	case "get":
		if len(args) != 2 {
			return errors.New("usage: auth-client get <path>")
		}
		return get(ctx, manager, gw, args[1])

	default:
		printHelp(flagSet)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// get sends path through the gateway and copies the body to stdout.
func get(ctx context.Context, manager *session.Manager, gw *gateway.Gateway, path string) error {
	if err := manager.RequireAuthenticated(path); err != nil {
		return err
	}
	resp, err := gw.Do(ctx, gateway.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		return manager.Handle(err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return nil
}

func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// logMetrics reports the gateway counters at debug level, so they show with
// --verbose.
func logMetrics(g prometheus.Gatherer) {
	values, err := gateway.Snapshot(g)
	if err != nil {
		log.Err(err).Msg("Failed to gather gateway metrics")
		return
	}
	log.Debug().Fields(values).Msg("Gateway metrics")
}

func setupLogging(c config.EnvConfig, verbose bool) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.WarnLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `auth-client signs in to the API and sends authorized requests.

Usage:
  auth-client [flags] <command>

Commands:
  login <username>    sign in and store the token pair
  signup <username>   create an account and sign in
  logout              revoke the refresh token and clear the store
  status              show whether a user is signed in
  whoami              ask the API who the access token belongs to
  get <path>          GET path through the gateway

Flags:
%s`, flagSet.FlagUsages())
}

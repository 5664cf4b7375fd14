package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/auriora/feedme-client/cmd/common"
	"github.com/auriora/feedme-client/internal/feedme"
	"github.com/auriora/feedme-client/pkg/logging"
)

func usage() {
	fmt.Printf(`feedmeclient - a command-line client speaking the Feedme protocol.

Connects to a Feedme server over websocket, optionally subscribes to a feed,
and logs every session/feed event to stdout until interrupted.

Usage: feedmeclient [options]

Valid options:
`)
	flag.PrintDefaults()
}

// setupFlags parses command-line flags and returns the merged configuration
// plus the feed to subscribe to, if any.
func setupFlags() (config *common.Config, feedName string, feedArgs map[string]string) {
	configPath := flag.StringP("config-file", "f", common.DefaultConfigPath(),
		"A YAML-formatted configuration file used by feedmeclient.")
	url := flag.StringP("url", "u", "",
		"Websocket URL of the Feedme server. Overrides the config file.")
	logLevel := flag.StringP("log", "l", "",
		"Set logging verbosity. Can be one of: fatal, error, warn, info, debug, trace.")
	feed := flag.StringP("feed", "s", "",
		"Name of a feed to subscribe to on connect.")
	feedArg := flag.StringArrayP("feed-arg", "a", nil,
		"A key=value feed argument. May be repeated.")
	versionFlag := flag.BoolP("version", "v", false, "Display program version.")
	help := flag.BoolP("help", "h", false, "Displays this help message.")
	flag.Usage = usage
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Println("feedmeclient", common.Version())
		os.Exit(0)
	}

	config = common.LoadConfig(*configPath)
	if *url != "" {
		config.URL = *url
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}

	feedArgs = make(map[string]string, len(*feedArg))
	for _, kv := range *feedArg {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			logging.Warn().Str("feed-arg", kv).Msg("ignoring malformed feed argument, expected key=value")
			continue
		}
		feedArgs[k] = v
	}

	logging.SetGlobalLevel(common.StringToLevel(config.LogLevel))
	return config, *feed, feedArgs
}

// cliEventHandler logs every Client-level event.
type cliEventHandler struct {
	feedme.NopClientEventHandler
}

func (cliEventHandler) OnConnecting() {
	logging.Info().Msg("connecting")
}

func (cliEventHandler) OnConnect() {
	logging.Info().Msg("connected")
}

func (cliEventHandler) OnDisconnect(err error) {
	logging.Warn().Err(err).Msg("disconnected")
}

func (cliEventHandler) OnBadServerMessage(err error) {
	logging.Error().Err(err).Msg("bad server message")
}

func (cliEventHandler) OnBadClientMessage(diagnostics string) {
	logging.Error().Str("diagnostics", diagnostics).Msg("server reported a bad client message")
}

func (cliEventHandler) OnTransportError(err error) {
	logging.Error().Err(err).Msg("transport error")
}

// cliFeedHandler logs every event for one subscribed feed.
type cliFeedHandler struct {
	name string
}

func (h cliFeedHandler) OnOpening() {
	logging.Info().Str("feed", h.name).Msg("feed opening")
}

func (h cliFeedHandler) OnOpen(data interface{}) {
	logging.Info().Str("feed", h.name).Interface("data", data).Msg("feed open")
}

func (h cliFeedHandler) OnClose(err error) {
	logging.Warn().Str("feed", h.name).Err(err).Msg("feed closed")
}

func (h cliFeedHandler) OnAction(actionName string, actionData, newData, oldData interface{}) {
	logging.Info().
		Str("feed", h.name).
		Str("action", actionName).
		Interface("actionData", actionData).
		Interface("newData", newData).
		Msg("feed action")
}

func main() {
	logging.DefaultLogger = logging.New(logging.NewConsoleWriterWithOptions(os.Stderr, "15:04:05"))

	config, feedName, feedArgs := setupFlags()

	transport := feedme.NewWSTransport(feedme.WSTransportOptions{URL: config.URL})
	opts := config.Options
	opts.Transport = transport

	client := feedme.NewClient(opts, cliEventHandler{})

	if feedName != "" {
		if err := client.Feed(feedName, feedArgs, cliFeedHandler{name: feedName}).DesireOpen(); err != nil {
			logging.Error().Err(err).Str("feed", feedName).Msg("failed to desire feed open")
		}
	}

	if err := client.Connect(); err != nil {
		common.HandleErrorAndExit(err, 1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Info().Str("signal", strings.ToUpper(sig.String())).Msg("signal received, disconnecting")

	if err := client.Disconnect(); err != nil {
		logging.Error().Err(err).Msg("disconnect failed")
	}
}

// Command mavrouter is the CLI entry point for the MAVLink router: it
// parses flags, loads the link configuration, builds every configured
// transport, starts the router's forwarding loop, and waits for an
// interrupt before shutting everything down.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mavrouter/config"
	"mavrouter/internal/mavio"
	"mavrouter/link"
	"mavrouter/logger"
	"mavrouter/mavlink"
	"mavrouter/queue"
	"mavrouter/router"
	"mavrouter/shell"
	"mavrouter/signalctx"
)

func main() {
	configFile := flag.String("file", "config/router.yaml", "Path to configuration file")
	configFileShort := flag.String("f", "", "Shorthand for -file")
	verbose := flag.Bool("verbose", false, "Log every drop decision")
	verboseShort := flag.Bool("v", false, "Shorthand for -verbose")
	withShell := flag.Bool("interface", false, "Enable the operator shell even if the config leaves it off")
	withShellShort := flag.Bool("i", false, "Shorthand for -interface")
	flag.Parse()

	file := *configFile
	if *configFileShort != "" {
		file = *configFileShort
	}
	isVerbose := *verbose || *verboseShort

	cfg, err := config.Load(file)
	if err != nil {
		logger.Fatal("[STARTUP] %v", err)
	}
	if cfg.Log.Verbose {
		isVerbose = true
	}

	logger.SetLevelFromString(cfg.Log.Level)
	if cfg.Log.TimestampFormat != "" {
		logger.SetTimestampFormat(cfg.Log.TimestampFormat)
	}

	links, err := buildLinks(cfg.Links)
	if err != nil {
		logger.Fatal("[STARTUP] %v", err)
	}

	inbound := queue.NewInbound(config.DefaultInboundQueueLength)
	stats := logger.NewStatsManager(time.Duration(cfg.Log.StatsIntervalS) * time.Second)
	rtr := router.New(links, inbound, isVerbose, stats)

	ctx, cancel := signalctx.WithShutdownSignal(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	for _, l := range links {
		workers.Add(2)
		go func() {
			defer workers.Done()
			l.RunReader(ctx, inbound)
		}()
		go func() {
			defer workers.Done()
			l.RunWriter(ctx)
		}()
	}
	stats.Start()

	if *withShell || *withShellShort {
		cfg.Shell.Enabled = true
		if cfg.Shell.Address == "" {
			cfg.Shell.Address = "127.0.0.1:8088"
		}
	}

	var httpServer *http.Server
	if cfg.Shell.Enabled {
		sh := shell.New(rtr)
		httpServer = &http.Server{Addr: cfg.Shell.Address, Handler: sh.Handler()}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("[SHELL] %v", err)
			}
		}()
		logger.Info("[STARTUP] operator shell listening on %s", cfg.Shell.Address)
	}

	logger.Info("[STARTUP] mavrouter running with %d links, press Ctrl+C to stop", len(links))
	rtr.Run(ctx)

	logger.Info("[SHUTDOWN] initiating graceful shutdown")
	stats.Stop()
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}
	// Closing a link shuts its outbound queue and transport, which is
	// what unblocks its reader and writer; only then is joining safe.
	for _, l := range links {
		l.Close()
	}
	workers.Wait()
	logger.Info("[SHUTDOWN] complete")
}

func buildLinks(cfgs []config.LinkConfig) ([]*link.Base, error) {
	links := make([]*link.Base, 0, len(cfgs))
	for i, lc := range cfgs {
		dialectCfg := mavio.Config{
			Dialect:        mavlink.CombinedDialect(),
			OutSystemID:    1,
			OutComponentID: 1,
		}

		var transport link.Transport
		var err error
		switch lc.Kind {
		case "udp-client":
			transport, err = link.OpenUDPClient(link.UDPClientConfig{RemoteAddress: lc.RemoteAddress}, dialectCfg)
		case "udp-server":
			transport, err = link.OpenUDPServer(link.UDPServerConfig{
				ListenAddress: lc.ListenAddress,
				PeerTTL:       time.Duration(lc.PeerTTL),
			}, dialectCfg)
		case "udp-broadcast":
			transport, err = link.OpenUDPBroadcast(link.UDPBroadcastConfig{
				ListenAddress:    lc.ListenAddress,
				BroadcastAddress: lc.BroadcastAddress,
				EndpointLock:     lc.EndpointLock,
			}, dialectCfg)
		case "serial":
			transport, err = link.OpenSerial(link.SerialConfig{
				Device:      lc.Device,
				Baud:        lc.Baud,
				FlowControl: lc.FlowControl,
			}, dialectCfg)
		default:
			err = fmt.Errorf("link %q: unknown kind %q", lc.Name, lc.Kind)
		}
		if err != nil {
			return nil, err
		}

		info := link.Info{
			ID:             i,
			Name:           lc.Name,
			Kind:           lc.Kind,
			SikRadio:       lc.SikRadio,
			OutputOnlyFrom: lc.OutputOnlyFrom,
		}
		killThreshold := lc.KillThreshold
		if lc.Kind != "serial" {
			killThreshold = 0
		}
		links = append(links, link.NewBase(info, transport, lc.OutboundQueueLength, time.Duration(lc.SeenTTL), killThreshold))
	}
	return links, nil
}

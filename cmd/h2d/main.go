// Command h2d is the multi-process HTTP/2 server entrypoint: invoked
// normally it is the master process (binds listeners, spawns workers);
// invoked with -a as argv[1] it runs as a worker instead, per
// original_source/src/worker.c's re-invocation convention.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/valyala/fasthttp"

	"github.com/gregory144/h2d/dispatch"
	"github.com/gregory144/h2d/h2"
	"github.com/gregory144/h2d/plugin"
	"github.com/gregory144/h2d/transport"
)

func loadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	return transport.TLSConfig(certFile, keyFile)
}

func autocertConfig(cacheDir, host string) *tls.Config {
	return transport.AutocertConfig(cacheDir, host)
}

func main() {
	var (
		addr       = flag.String("addr", ":8443", "TCP address to listen on")
		workers    = flag.Int("workers", 4, "number of worker processes")
		certFile   = flag.String("cert", "", "TLS certificate file (empty disables TLS)")
		keyFile    = flag.String("key", "", "TLS key file")
		autocert   = flag.String("autocert-cache", "", "enable golang.org/x/crypto/acme/autocert, caching issued certs in this directory")
		autoHost   = flag.String("autocert-host", "", "host name to request an autocert certificate for")
		asWorker   = flag.Bool("a", false, "internal: run as a worker process")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[h2d] ", log.LstdFlags)

	listeners := []dispatch.ListenAddr{
		{Index: 0, Network: "tcp", Addr: *addr, TLS: *certFile != "" || *autocert != ""},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *asWorker {
		runWorker(ctx, listeners, *certFile, *keyFile, *autocert, *autoHost, logger)
		return
	}

	m := &dispatch.Master{
		NumWorkers: *workers,
		Listeners:  listeners,
		Log:        logger,
	}

	if err := m.Run(ctx, os.Args[1:]); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func runWorker(ctx context.Context, listeners []dispatch.ListenAddr, certFile, keyFile, autocertCache, autoHost string, logger *log.Logger) {
	var tlsCfg *tls.Config

	switch {
	case autocertCache != "":
		tlsCfg = autocertConfig(autocertCache, autoHost)
	case certFile != "":
		cfg, err := loadTLSConfig(certFile, keyFile)
		if err != nil {
			logger.Fatalf("tls config: %v", err)
		}
		tlsCfg = cfg
	}

	w := &dispatch.Worker{
		Handler:   &plugin.FasthttpAdaptor{Handler: defaultHandler},
		Listeners: listeners,
		TLSConfig: tlsCfg,
		Settings:  h2.DefaultSettings(),
		Log:       logger,
	}

	if err := w.Run(ctx); err != nil {
		logger.Fatalf("worker exited: %v", err)
	}
}

// defaultHandler is a placeholder fasthttp.RequestHandler; real deployments
// replace it with application routing before building the binary.
func defaultHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString("h2d\n")
}

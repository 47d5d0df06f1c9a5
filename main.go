package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Arnav112-l/Notepad/api"
	"github.com/Arnav112-l/Notepad/config"
	"github.com/Arnav112-l/Notepad/document"
	"github.com/Arnav112-l/Notepad/logger"
	"github.com/Arnav112-l/Notepad/middleware"
	"github.com/Arnav112-l/Notepad/room"
	"github.com/Arnav112-l/Notepad/session"
	"github.com/Arnav112-l/Notepad/startup"
	"github.com/Arnav112-l/Notepad/watch"
	"github.com/Arnav112-l/Notepad/ws"
	"github.com/spf13/cobra"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func newHandler(cfg config.Config, manager *session.Manager, docs *document.Store, wsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	api.NewCollaborateHandler(manager, cfg.PublicURL).Register(mux)
	api.NewDocumentHandler(docs).Register(mux)
	mux.Handle("GET /ws", wsHandler)

	var handler http.Handler = middleware.CORS(mux)
	if cfg.StaticDir != "" {
		handler = newSPAHandler(handler, os.DirFS(cfg.StaticDir))
	}
	return middleware.Logging(handler)
}

// newSPAHandler wraps an API handler with static file serving for the browser client.
func newSPAHandler(apiHandler http.Handler, staticFS fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasPrefix(path, "/api") || path == "/ws" || path == "/health" {
			apiHandler.ServeHTTP(w, r)
			return
		}

		cleanPath := strings.TrimPrefix(path, "/")
		if cleanPath == "" {
			cleanPath = "index.html"
		}

		// /collaborate/<id> and other client routes fall back to index.html
		if !fileExists(staticFS, cleanPath) && !fileExists(staticFS, cleanPath+".br") {
			cleanPath = "index.html"
		}

		serveFileWithBrotli(w, r, staticFS, cleanPath)
	})
}

func fileExists(fsys fs.FS, path string) bool {
	info, err := fs.Stat(fsys, path)
	return err == nil && !info.IsDir()
}

// serveFileWithBrotli serves a file, using pre-compressed .br version if available and client accepts brotli.
func serveFileWithBrotli(w http.ResponseWriter, r *http.Request, fsys fs.FS, filePath string) {
	if strings.HasPrefix(filePath, "assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	w.Header().Set("Vary", "Accept-Encoding")

	if strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
		if brFile, err := fsys.Open(filePath + ".br"); err == nil {
			defer brFile.Close()
			if rs, ok := brFile.(io.ReadSeeker); ok {
				w.Header().Set("Content-Encoding", "br")
				w.Header().Set("Content-Type", getContentType(filePath))
				http.ServeContent(w, r, filePath, time.Time{}, rs)
				return
			}
		}
	}

	file, err := fsys.Open(filePath)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	rs, ok := file.(io.ReadSeeker)
	if !ok {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", getContentType(filePath))
	http.ServeContent(w, r, filePath, time.Time{}, rs)
}

func getContentType(filePath string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(filePath)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile   string
		overrides config.Config
	)

	rootCmd := &cobra.Command{
		Use:   "notepad",
		Short: "Notepad server with live collaborative sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, overrides)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file path (YAML)")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "server port (default 3000)")
	flags.StringVar(&overrides.Host, "host", "", "listen host")
	flags.StringVar(&overrides.DocumentsDir, "documents-dir", "", "directory for saved documents")
	flags.StringVar(&overrides.StaticDir, "static-dir", "", "directory with the browser client")
	flags.StringVar(&overrides.PublicURL, "public-url", "", "base URL for share links")
	flags.DurationVar(&overrides.SessionExpiry, "session-expiry", 0, "how long an empty session survives")
	flags.BoolVar(&overrides.DevMode, "dev", false, "enable development mode")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notepad %s\n", version)
		},
	})

	return rootCmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f config.Config) {
	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = f.Port
	}
	if changed("host") {
		cfg.Host = f.Host
	}
	if changed("documents-dir") {
		cfg.DocumentsDir = f.DocumentsDir
	}
	if changed("static-dir") {
		cfg.StaticDir = f.StaticDir
	}
	if changed("public-url") {
		cfg.PublicURL = f.PublicURL
	}
	if changed("session-expiry") {
		cfg.SessionExpiry = f.SessionExpiry
	}
	if changed("dev") {
		cfg.DevMode = f.DevMode
	}
	if changed("log-level") {
		cfg.LogLevel = f.LogLevel
	}
}

func run(cfg config.Config) error {
	logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		DevMode: cfg.DevMode,
	})

	docsDir, err := filepath.Abs(cfg.DocumentsDir)
	if err != nil {
		return fmt.Errorf("resolve documents directory: %w", err)
	}
	docs, err := document.NewStore(docsDir)
	if err != nil {
		return fmt.Errorf("initialize document store: %w", err)
	}

	manager := session.NewManager(session.NewMemoryStore(), cfg.SessionExpiry)
	hub := room.NewHub()

	docWatcher := watch.NewDocumentWatcher(docs)
	if err := docWatcher.Start(); err != nil {
		return fmt.Errorf("start document watcher: %w", err)
	}

	wsHandler := ws.NewRPCHandler(manager, hub, docWatcher, cfg.DevMode)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, manager, docs, wsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		docWatcher.Stop()
		hub.Shutdown()
		manager.Shutdown()
		close(shutdownDone)
	}()

	banner := startup.New(os.Stdout)
	banner.Print(startup.BannerOptions{
		Version:      version,
		LocalURL:     fmt.Sprintf("http://localhost:%d", cfg.Port),
		PublicURL:    cfg.PublicURL,
		DocumentsDir: docsDir,
		SessionTTL:   cfg.SessionExpiry.String(),
	})
	if cfg.PublicURL != "" {
		banner.PrintQRCode(cfg.PublicURL)
	}
	banner.PrintFooter()

	slog.Info("server starting", "addr", srv.Addr, "documentsDir", docsDir, "devMode", cfg.DevMode, "sessionExpiry", cfg.SessionExpiry)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-shutdownDone
	slog.Info("server stopped")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reflet-widget/widget"
)

// widget-client is a host harness for the embeddable widget: it plays the
// role of the page the widget is embedded in, keeping visitor state in a
// local SQLite file and writing the rendered view to an HTML file after every
// state change. Commands on stdin drive the widget:
//
//	/open   show the chat window
//	/close  hide it again
//	/quit   unmount and exit
//	<text>  send a message
func main() {
	endpoint := flag.String("endpoint", "http://localhost:82/api/widget/v1/call", "function endpoint URL")
	widgetID := flag.String("widget", "", "widget id to embed")
	statePath := flag.String("state", "reflet-widget.db", "path of the local state database")
	outPath := flag.String("out", "reflet-widget.html", "file the rendered view is written to")
	pageURL := flag.String("url", "http://localhost/", "page URL reported to the backend")
	referrer := flag.String("referrer", "", "referrer reported to the backend")
	flag.Parse()

	if *widgetID == "" {
		log.Fatal("-widget is required")
	}

	store, err := widget.OpenSQLiteStore(*statePath)
	if err != nil {
		log.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	sink := &fileSink{path: *outPath}

	w := widget.New(
		*widgetID,
		widget.NewTransport(*endpoint, nil),
		store,
		sink,
		widget.WithPageContext(*pageURL, *referrer, "reflet-widget-client/1.0"),
	)

	ctx := context.Background()
	if err := w.Init(ctx); err != nil {
		log.Fatalf("widget init failed: %v", err)
	}
	fmt.Printf("Widget mounted; view written to %s\n", *outPath)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		w.Destroy()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/open":
			w.Open(ctx)
		case "/close":
			w.Close()
		case "/quit":
			w.Destroy()
			return
		default:
			w.Send(ctx, line)
		}
	}

	w.Destroy()
}

// fileSink writes the rendered view to disk so a browser pointed at the file
// shows the widget as a page would.
type fileSink struct {
	path string
}

func (s *fileSink) Mount(markup string) {
	s.write(markup)
}

func (s *fileSink) Render(markup string) {
	s.write(markup)
}

func (s *fileSink) ScrollToEnd() {}

func (s *fileSink) Unmount() {
	os.Remove(s.path)
}

func (s *fileSink) write(markup string) {
	page := fmt.Sprintf("<!doctype html>\n<meta charset=\"utf-8\">\n<style>\n%s\n</style>\n%s\n", widget.BaseStyles, markup)
	if err := os.WriteFile(s.path, []byte(page), 0o644); err != nil {
		log.Printf("write view: %v", err)
	}
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/price-radar/price-radar/test/mockprovider"
)

func main() {
	port := flag.Int("port", 8001, "port to listen on")
	flag.Parse()

	server := mockprovider.NewServer(mockprovider.NewState())

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("starting mock provider server", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

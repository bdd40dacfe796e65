package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// posd serves fixture catalog and outlet data for local development, standing
// in for the real upstream APIs the order form talks to.

const itemsBody = `{
  "results": [
    {
      "id": "4006381333931",
      "name": "Pencil HB",
      "basePrice": "10.00",
      "discountTiers": [
        {"minQty": "1", "maxQty": "4", "discountPercent": "0"},
        {"minQty": "5", "maxQty": "9", "discountPercent": "10"},
        {"minQty": "10", "maxQty": null, "discountPercent": "20"}
      ]
    },
    {
      "id": "8712345678906",
      "name": "Notebook A5",
      "basePrice": "24.90",
      "discountTiers": [
        {"minQty": "10", "maxQty": null, "discountPercent": "15"}
      ]
    },
    {
      "id": "5012345678900",
      "name": "Eraser",
      "basePrice": "3.25",
      "discountTiers": []
    },
    {
      "id": "9002490100070",
      "name": "Marker Set",
      "basePrice": "48.00",
      "discountTiers": []
    }
  ]
}`

const outletsBody = `{
  "results": [
    {"id": "OUT-1", "name": "Centro", "address": "12 Main St"},
    {"id": "OUT-2", "name": "Norte", "address": "4 Hill Rd"},
    {"id": "OUT-3", "name": "Sur", "address": "77 River Ave"}
  ]
}`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	addr := flag.String("addr", defaultAddr(), "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/items", serveJSON(itemsBody))
	mux.HandleFunc("/outlets", serveJSON(outletsBody))

	log.Printf("posd fixture server listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func defaultAddr() string {
	if port := strings.TrimSpace(os.Getenv("POSD_PORT")); port != "" {
		return ":" + port
	}
	return ":9090"
}

func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

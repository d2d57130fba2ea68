// Command enginectl is a read-only inspection surface over the durable
// event ledger (SPEC_FULL §12.5): asset graph/splitter state reconstructed
// from recorded events, and payment status lookups. It performs no
// payment-mutating operation — those are library calls made by the
// out-of-scope caller that holds the Engine itself; this binary is a
// diagnostics tool, not the "admin UI" spec.md §1 excludes.
package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/coretypes"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/httpx"
	"github.com/LeaderMalang/decentralized-marketplace-for-AI/internal/ledger"
)

func main() {
	pool := ledger.MustConnect()
	store := ledger.New(pool)

	port := os.Getenv("ENGINECTL_PORT")
	if port == "" {
		port = "8090"
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/assets/{asset_id}", func(api chi.Router) {
		api.Get("/graph", getAssetGraph(store))
		api.Get("/splitter", getAssetSplitter(store))
	})
	r.Get("/payments/{payment_id}", getPayment(store))
	r.Get("/events", listRecentEvents(store))

	if err := http.ListenAndServe(":"+port, r); err != nil {
		panic(err)
	}
}

func parseAssetID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "asset_id"), 10, 64)
}

// getAssetGraph replays ContributorEdgeAdded/ParentEdgeAdded/GraphFinalized
// events recorded for the asset into a point-in-time view, rather than
// reaching into a running Engine's memory (this binary may run against an
// Engine process it has no in-process access to).
func getAssetGraph(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := parseAssetID(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "BAD_ASSET_ID", err.Error(), nil)
			return
		}
		events, err := store.EventsForAsset(r.Context(), coretypes.AssetID(assetID))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error(), nil)
			return
		}

		var contributorEdges, parentEdges []map[string]any
		finalized := false
		for _, ev := range events {
			switch ev.Name {
			case "ContributorEdgeAdded":
				contributorEdges = append(contributorEdges, ev.Payload)
			case "ParentEdgeAdded":
				parentEdges = append(parentEdges, ev.Payload)
			case "GraphFinalized":
				finalized = true
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"request_id":         httpx.NewRequestID(),
			"asset_id":           assetID,
			"finalized":          finalized,
			"contributor_edges":  contributorEdges,
			"parent_edges":       parentEdges,
		})
	}
}

// getAssetSplitter surfaces the SplitterCreated event recorded for the
// asset, if any.
func getAssetSplitter(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID, err := parseAssetID(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "BAD_ASSET_ID", err.Error(), nil)
			return
		}
		events, err := store.EventsForAsset(r.Context(), coretypes.AssetID(assetID))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error(), nil)
			return
		}
		for _, ev := range events {
			if ev.Name == "SplitterCreated" {
				httpx.WriteJSON(w, http.StatusOK, map[string]any{
					"request_id": httpx.NewRequestID(),
					"asset_id":   assetID,
					"splitter":   ev.Payload,
				})
				return
			}
		}
		httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no splitter recorded for asset", nil)
	}
}

func getPayment(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "payment_id")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "BAD_PAYMENT_ID", err.Error(), nil)
			return
		}
		row, ok, err := store.GetPayment(r.Context(), coretypes.PaymentID(id))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error(), nil)
			return
		}
		if !ok {
			httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND", "payment not recorded", nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "payment": row})
	}
}

func listRecentEvents(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		events, err := store.ListEvents(r.Context(), limit)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "DB_ERROR", err.Error(), nil)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"request_id": httpx.NewRequestID(), "events": events})
	}
}

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var runPayloadFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit a run request and record a new arbitrage",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}

		payload, err := os.ReadFile(runPayloadFile)
		if err != nil {
			return fmt.Errorf("reading payload file: %w", err)
		}

		data, err := newClient().doRequest(http.MethodPost,
			"/api/v1/collectivites/"+url.PathEscape(collectivite)+"/arbitrage:run",
			bytes.NewReader(payload))
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the most recent arbitrage run",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}
		data, err := newClient().doRequest(http.MethodGet,
			"/api/v1/collectivites/"+url.PathEscape(collectivite)+"/arbitrage:last", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <arbitrage-id>",
	Short: "Show one arbitrage run by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}
		data, err := newClient().doRequest(http.MethodGet,
			"/api/v1/collectivites/"+url.PathEscape(collectivite)+"/arbitrages/"+url.PathEscape(args[0]), nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var (
	listPage   int
	listLimit  int
	listCursor string
	useCursor  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List arbitrage runs (offset pages by default, --cursor for cursor paging)",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}

		base := "/api/v1/collectivites/" + url.PathEscape(collectivite)
		query := url.Values{}
		var path string
		if useCursor || listCursor != "" {
			path = base + "/arbitrages:cursor"
			if listCursor != "" {
				query.Set("cursor", listCursor)
			}
			if listLimit > 0 {
				query.Set("limit", strconv.Itoa(listLimit))
			}
		} else {
			path = base + "/arbitrages"
			query.Set("page", strconv.Itoa(listPage))
			if listLimit > 0 {
				query.Set("limit", strconv.Itoa(listLimit))
			}
		}
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		data, err := newClient().doRequest(http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runPayloadFile, "file", "f", "", "JSON file with the run request payload")
	_ = runCmd.MarkFlagRequired("file")

	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number (offset paging)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Page size")
	listCmd.Flags().StringVar(&listCursor, "after", "", "Opaque cursor from a previous page")
	listCmd.Flags().BoolVar(&useCursor, "cursor", false, "Use cursor paging")
}

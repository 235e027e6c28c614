package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	weightClimate   float64
	weightEducation float64
	weightFinancial float64
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the scoring weights of a collectivite",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}
		data, err := newClient().doRequest(http.MethodGet,
			"/api/v1/collectivites/"+url.PathEscape(collectivite)+"/settings", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		collectivite, err := requireCollectivite()
		if err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]float64{
			"poids_climat":    weightClimate,
			"poids_education": weightEducation,
			"poids_financier": weightFinancial,
		})
		if err != nil {
			return err
		}

		data, err := newClient().doRequest(http.MethodPut,
			"/api/v1/collectivites/"+url.PathEscape(collectivite)+"/settings",
			bytes.NewReader(payload))
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the server engine and schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().doRequest(http.MethodGet, "/api/v1/system/version", nil)
		if err != nil {
			return err
		}
		return printJSON(data)
	},
}

func init() {
	settingsSetCmd.Flags().Float64Var(&weightClimate, "climat", 0.4, "Climate weight [0,1]")
	settingsSetCmd.Flags().Float64Var(&weightEducation, "education", 0.3, "Education weight [0,1]")
	settingsSetCmd.Flags().Float64Var(&weightFinancial, "financier", 0.3, "Financial weight [0,1]")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

package controller

import (
	"net/http"

	"cloudpico-station/internal/utils"
)

func (c *weatherControllerImpl) handleVersion(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"version": c.apiVersion})
}

func (c *weatherControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, newLatestJSON(c.source.Latest()))
}

func (c *weatherControllerImpl) handleDaytime(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, newDaytimeJSON(c.source.Daytime()))
}

func (c *weatherControllerImpl) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"online": c.source.Online()})
}

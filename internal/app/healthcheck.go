package app

import (
	"net/http"

	"github.com/cinexplorer/booking-api/api"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "available",
		Env:     app.config.Env,
		Version: version,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// Package api is the localhost surface the rendering layer reads. It
// only ever reads stores and invokes the documented cache/router entry
// points; nothing here reaches the remote service or the transport.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"chatapp-client/internal/cache"
	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type API struct {
	sugar  *zap.SugaredLogger
	cache  *cache.Cache
	router *router.Router
}

func New(sugar *zap.SugaredLogger, c *cache.Cache, r *router.Router) *API {
	return &API{sugar: sugar, cache: c, router: r}
}

func (a *API) Routes(printHttpRequests bool) http.Handler {
	r := chi.NewRouter()

	if printHttpRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Get("/servers", a.GetServers)
		api.Get("/channel", a.GetChannel)
		api.Post("/channel/select", a.SelectChannel)
		api.Get("/messages", a.GetMessages)
		api.Get("/permissions", a.GetPermissions)
		api.Get("/roles", a.GetRoles)
		api.Get("/relations", a.GetRelations)
		api.Get("/dms", a.GetDMChannels)
		api.Get("/presence", a.GetPresence)
		api.Get("/profiles", a.GetProfiles)
		api.Get("/room", a.GetRoom)
	})

	return r
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.sugar.Errorf("Writing response failed: %v", err)
	}
}

func (a *API) GetServers(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Servers.Get())
}

func (a *API) GetChannel(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Channel.Get())
}

// SelectChannel is the UI intent that drives the channel-scope
// lifecycle: clear, resubscribe, reload.
func (a *API) SelectChannel(w http.ResponseWriter, r *http.Request) {
	var ch models.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		http.Error(w, "Channel is in improper format", http.StatusBadRequest)
		return
	}
	if ch.ID == 0 {
		http.Error(w, "Channel id is missing", http.StatusBadRequest)
		return
	}

	if err := a.router.SetActiveChannel(&ch); err != nil {
		a.sugar.Errorf("Selecting channel [%d] failed: %v", ch.ID, err)
		http.Error(w, "", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) GetMessages(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Messages.Get())
}

type permissionsResponse struct {
	Channel        permissions.Set `json:"channel,string"`
	Server         permissions.Set `json:"server,string"`
	CanSend        bool            `json:"canSend"`
	CanManageMsgs  bool            `json:"canManageMessages"`
	CanManageRoles bool            `json:"canManageRoles"`
}

func (a *API) GetPermissions(w http.ResponseWriter, r *http.Request) {
	channel := a.cache.ChannelPerms.Get()
	server := a.cache.ServerPerms.Get()

	a.writeJSON(w, permissionsResponse{
		Channel:        channel,
		Server:         server,
		CanSend:        channel.Has(permissions.SendMessages),
		CanManageMsgs:  channel.Has(permissions.ManageMessages),
		CanManageRoles: server.Has(permissions.ManageRoles),
	})
}

func (a *API) GetRoles(w http.ResponseWriter, r *http.Request) {
	serverIDParam := r.URL.Query().Get("serverID")
	if serverIDParam == "" {
		a.writeJSON(w, a.cache.Roles.Get())
		return
	}

	serverID, err := strconv.ParseInt(serverIDParam, 10, 64)
	if err != nil {
		http.Error(w, "Server ID is in improper format", http.StatusBadRequest)
		return
	}

	a.writeJSON(w, a.cache.Roles.ServerRoles(serverID))
}

func (a *API) GetRelations(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Relations.Get())
}

func (a *API) GetDMChannels(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.DMChannels.Get())
}

func (a *API) GetPresence(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Presence.Get())
}

func (a *API) GetProfiles(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Profiles.Get())
}

func (a *API) GetRoom(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.cache.Room.Get())
}

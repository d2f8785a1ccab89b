package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/auth"
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/user"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Unauthenticated reports whether the server rejected the credential.
func (e *APIError) Unauthenticated() bool {
	return e.Status == http.StatusUnauthorized
}

// API is a JSON client for the /api/v1 surface.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (a *API) Login(ctx context.Context, email, password string) (*auth.AuthTokens, error) {
	var tokens auth.AuthTokens
	err := a.do(ctx, http.MethodPost, "/auth/login", "", auth.LoginRequest{Email: email, Password: password}, &tokens)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (a *API) Logout(ctx context.Context, token string) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (a *API) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	var u user.User
	if err := a.do(ctx, http.MethodGet, "/users/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FetchPermissions rebuilds the server's decision for one user.
func (a *API) FetchPermissions(ctx context.Context, token string, userID int64) (authz.Grants, error) {
	var view authz.PermissionsView
	if err := a.do(ctx, http.MethodGet, "/users/"+itoa(userID)+"/permissions", token, nil, &view); err != nil {
		return authz.Grants{}, err
	}
	return authz.NewGrants(view.IsAdmin, view.Permissions), nil
}

func (a *API) ListRoles(ctx context.Context, token string) ([]*role.Role, error) {
	var res role.RolesResponse
	if err := a.do(ctx, http.MethodGet, "/roller", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Roles, nil
}

func (a *API) AssignRoles(ctx context.Context, token string, userID int64, roleIDs []int64) (*assignment.Result, error) {
	var res assignment.Result
	body := assignment.AssignRolesRequest{RoleIDs: roleIDs}
	if err := a.do(ctx, http.MethodPut, "/users/"+itoa(userID)+"/roles", token, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) AssignRolesBulk(ctx context.Context, token string, userIDs, roleIDs []int64) (*assignment.BulkResult, error) {
	var res assignment.BulkResult
	body := assignment.BulkAssignRequest{UserIDs: userIDs, RoleIDs: roleIDs}
	if err := a.do(ctx, http.MethodPost, "/users/assign-roles-bulk", token, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) RemoveRole(ctx context.Context, token string, userID, roleID int64) (*assignment.Result, error) {
	var res assignment.Result
	path := "/users/" + itoa(userID) + "/roles/" + itoa(roleID)
	if err := a.do(ctx, http.MethodDelete, path, token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope internal.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Msg != "" {
			apiErr.Message = envelope.Msg
			apiErr.Code = string(envelope.Code)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

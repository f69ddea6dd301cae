package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/todo-api/internal/constants"
	"github.com/yukikurage/todo-api/internal/dto"
)

// Todo is a todo as returned by the API.
type Todo = dto.TodoDTO

// TodoPage is one page of todos as returned by the API.
type TodoPage = dto.TodoListResponse

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Attachment is a file to upload with a todo.
type Attachment struct {
	Name string
	Body io.Reader
}

// TodoInput is the add/edit form. On edit, an empty Title or Description and
// a nil Tags are left unchanged; a non-nil Tags replaces the tag set. Image
// and Files replace the stored attachments only when given.
type TodoInput struct {
	Title       string
	Description string
	Tags        *string
	Image       *Attachment
	Files       []Attachment
}

// ListOptions selects a page of todos.
type ListOptions struct {
	Page       int
	Limit      int
	SearchTerm string
}

// Client is a typed client for the todo API. The bearer token is read from
// the session context on every call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	session    *SessionContext
}

// NewClient creates a Client. A nil httpClient uses a client with a 30s
// timeout.
func NewClient(baseURL string, session *SessionContext, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: u, httpClient: httpClient, session: session}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", credentials(username, password), nil)
}

// Login exchanges credentials for a token. It does not touch the session.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", credentials(username, password), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTodos fetches one page of the current user's todos.
func (c *Client) ListTodos(ctx context.Context, opts ListOptions) (*TodoPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.SearchTerm != "" {
		q.Set("searchTerm", opts.SearchTerm)
	}

	path := "/api/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TodoPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTodo fetches a single todo.
func (c *Client) GetTodo(ctx context.Context, todoID string) (*Todo, error) {
	var out Todo
	if err := c.doJSON(ctx, http.MethodGet, "/api/todos/"+url.PathEscape(todoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTodo submits the add form.
func (c *Client) CreateTodo(ctx context.Context, input TodoInput) (*Todo, error) {
	return c.sendTodo(ctx, http.MethodPost, "/api/todos", input)
}

// UpdateTodo submits the edit form.
func (c *Client) UpdateTodo(ctx context.Context, todoID string, input TodoInput) (*Todo, error) {
	return c.sendTodo(ctx, http.MethodPut, "/api/todos/"+url.PathEscape(todoID), input)
}

// DeleteTodo deletes a todo.
func (c *Client) DeleteTodo(ctx context.Context, todoID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(todoID), nil, nil)
}

// Download writes the attachment at fileURL to w. Relative URLs are resolved
// against the API base URL.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) (int64, error) {
	ref, err := url.Parse(fileURL)
	if err != nil {
		return 0, fmt.Errorf("invalid file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(ref).String(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) sendTodo(ctx context.Context, method, path string, input TodoInput) (*Todo, error) {
	body, contentType, err := encodeTodoForm(input)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out Todo
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeTodoForm(input TodoInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if input.Title != "" {
		if err := mw.WriteField("title", input.Title); err != nil {
			return nil, "", err
		}
	}
	if input.Description != "" {
		if err := mw.WriteField("description", input.Description); err != nil {
			return nil, "", err
		}
	}
	if input.Tags != nil {
		if err := mw.WriteField("tags", *input.Tags); err != nil {
			return nil, "", err
		}
	}

	if input.Image != nil {
		if err := writeFile(mw, constants.FormFieldImage, *input.Image); err != nil {
			return nil, "", err
		}
	}
	for _, f := range input.Files {
		if err := writeFile(mw, constants.FormFieldFiles, f); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeFile(mw *multipart.Writer, field string, a Attachment) error {
	part, err := mw.CreateFormFile(field, a.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, a.Body); err != nil {
		return fmt.Errorf("reading %s: %w", a.Name, err)
	}
	return nil
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", constants.BearerScheme+" "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

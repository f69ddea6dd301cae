package client

import (
	"context"
	"io"
	"sort"
)

// TodoView holds the state of the todo list screen: the page and search term
// sent to the server, the loaded page, and the tag filter applied to it.
type TodoView struct {
	app   *App
	limit int

	page        int
	totalPages  int
	searchTerm  string
	todos       []Todo
	selectedTag string
	notice      string
}

func newTodoView(app *App, limit int) *TodoView {
	return &TodoView{app: app, limit: limit, page: 1}
}

// Refresh loads the current page. On failure the error is kept as the notice
// and the loaded page is left as it was.
func (v *TodoView) Refresh(ctx context.Context) error {
	page, err := v.app.client.ListTodos(ctx, ListOptions{
		Page:       v.page,
		Limit:      v.limit,
		SearchTerm: v.searchTerm,
	})
	if err != nil {
		return v.fail(err)
	}

	v.todos = page.Todos
	v.totalPages = page.TotalPages
	if page.CurrentPage > 0 {
		v.page = page.CurrentPage
	}
	v.notice = ""
	return nil
}

// SetPage moves to page p and reloads.
func (v *TodoView) SetPage(ctx context.Context, p int) error {
	if p < 1 {
		p = 1
	}
	v.page = p
	return v.Refresh(ctx)
}

// NextPage moves forward when there is a next page.
func (v *TodoView) NextPage(ctx context.Context) error {
	if v.page >= v.totalPages {
		return nil
	}
	return v.SetPage(ctx, v.page+1)
}

// PrevPage moves back when not on the first page.
func (v *TodoView) PrevPage(ctx context.Context) error {
	if v.page <= 1 {
		return nil
	}
	return v.SetPage(ctx, v.page-1)
}

// SetSearch changes the search term, goes back to the first page and reloads.
func (v *TodoView) SetSearch(ctx context.Context, term string) error {
	v.searchTerm = term
	v.page = 1
	return v.Refresh(ctx)
}

// Tags returns the distinct tags of the loaded page, sorted.
func (v *TodoView) Tags() []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, todo := range v.todos {
		for _, tag := range todo.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// SelectTag filters the loaded page by tag. "" clears the filter.
func (v *TodoView) SelectTag(tag string) {
	v.selectedTag = tag
}

// Visible returns the loaded todos that match the selected tag. The filter
// never looks beyond the loaded page.
func (v *TodoView) Visible() []Todo {
	if v.selectedTag == "" {
		return v.todos
	}
	var out []Todo
	for _, todo := range v.todos {
		for _, tag := range todo.Tags {
			if tag == v.selectedTag {
				out = append(out, todo)
				break
			}
		}
	}
	return out
}

// Save creates a todo when todoID is empty and edits it otherwise, then
// reloads the list.
func (v *TodoView) Save(ctx context.Context, todoID string, input TodoInput) (*Todo, error) {
	var (
		todo *Todo
		err  error
	)
	if todoID == "" {
		todo, err = v.app.client.CreateTodo(ctx, input)
	} else {
		todo, err = v.app.client.UpdateTodo(ctx, todoID, input)
	}
	if err != nil {
		return nil, v.fail(err)
	}
	if err := v.Refresh(ctx); err != nil {
		return todo, err
	}
	return todo, nil
}

// Delete removes a todo and reloads the list.
func (v *TodoView) Delete(ctx context.Context, todoID string) error {
	if err := v.app.client.DeleteTodo(ctx, todoID); err != nil {
		return v.fail(err)
	}
	return v.Refresh(ctx)
}

// Download writes an attachment of a loaded todo to w.
func (v *TodoView) Download(ctx context.Context, fileURL string, w io.Writer) error {
	if _, err := v.app.client.Download(ctx, fileURL, w); err != nil {
		return v.fail(err)
	}
	return nil
}

func (v *TodoView) Page() int { return v.page }

func (v *TodoView) TotalPages() int { return v.totalPages }

func (v *TodoView) SearchTerm() string { return v.searchTerm }

func (v *TodoView) SelectedTag() string { return v.selectedTag }

// Todos returns the loaded page without the tag filter.
func (v *TodoView) Todos() []Todo { return v.todos }

// Notice is the message of the last failed action, or "".
func (v *TodoView) Notice() string { return v.notice }

func (v *TodoView) fail(err error) error {
	err = v.app.observe(err)
	v.notice = err.Error()
	return err
}

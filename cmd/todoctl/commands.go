package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/yukikurage/todo-api/internal/client"
)

const defaultAPIURL = "http://localhost:8080"

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Run parses global flags, builds the app and dispatches to a subcommand.
func Run(ctx context.Context, args []string, out io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("todoctl", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs, os.Stderr) }
	apiURL := fs.String("api", envOr("TODO_API_URL", defaultAPIURL), "API base URL")
	sessionPath := fs.String("session", envOr("TODOCTL_SESSION", defaultSessionPath()), "Session file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs, out)
		return nil
	}

	session, err := client.NewSessionContext(client.NewFileSessionStore(*sessionPath))
	if err != nil {
		return err
	}
	c, err := client.NewClient(*apiURL, session, nil)
	if err != nil {
		return err
	}
	app := client.NewApp(c, session)
	app.Start()

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "register":
		return registerCommand(ctx, app, cmdArgs, out)
	case "login":
		return loginCommand(ctx, app, cmdArgs, out)
	case "logout":
		if err := app.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")
		return nil
	case "status":
		if s, ok := app.Session(); ok {
			fmt.Fprintf(out, "Logged in as %s\n", s.UserID)
		} else {
			fmt.Fprintln(out, "Not logged in")
		}
		return nil
	case "list", "ls":
		return listCommand(ctx, app, cmdArgs, out)
	case "add":
		return saveCommand(ctx, app, "", cmdArgs, out)
	case "edit":
		if len(cmdArgs) == 0 {
			return errors.New("usage: todoctl edit <id> [options]")
		}
		return saveCommand(ctx, app, cmdArgs[0], cmdArgs[1:], out)
	case "delete", "rm":
		return deleteCommand(ctx, app, cmdArgs, out)
	case "download":
		return downloadCommand(ctx, app, cmdArgs, out)
	case "help":
		printUsage(fs, out)
		return nil
	default:
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func credentialFlags(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet("todoctl "+name, flag.ContinueOnError)
	username := fs.String("u", "", "Username")
	password := fs.String("p", envOr("TODOCTL_PASSWORD", ""), "Password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *username == "" || *password == "" {
		return "", "", fmt.Errorf("usage: todoctl %s -u <username> -p <password>", name)
	}
	return *username, *password, nil
}

func registerCommand(ctx context.Context, app *client.App, args []string, out io.Writer) error {
	username, password, err := credentialFlags("register", args)
	if err != nil {
		return err
	}
	if err := app.Register(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered and logged in as %s\n", username)
	return nil
}

func loginCommand(ctx context.Context, app *client.App, args []string, out io.Writer) error {
	username, password, err := credentialFlags("login", args)
	if err != nil {
		return err
	}
	if err := app.Login(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s\n", username)
	return nil
}

func listCommand(ctx context.Context, app *client.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("todoctl list", flag.ContinueOnError)
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", 10, "Page size")
	search := fs.String("search", "", "Search title and description")
	tag := fs.String("tag", "", "Only show todos on this page with the tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	view, err := app.TodoView(*limit)
	if err != nil {
		return err
	}
	if *search != "" {
		if err := view.SetSearch(ctx, *search); err != nil {
			return err
		}
	}
	if err := view.SetPage(ctx, *page); err != nil {
		return err
	}
	view.SelectTag(*tag)

	printTodos(out, view.Visible())
	fmt.Fprintf(out, "\npage %d of %d", view.Page(), view.TotalPages())
	if tags := view.Tags(); len(tags) > 0 {
		fmt.Fprintf(out, "  tags: %s", strings.Join(tags, ", "))
	}
	fmt.Fprintln(out)
	return nil
}

func saveCommand(ctx context.Context, app *client.App, todoID string, args []string, out io.Writer) error {
	name := "add"
	if todoID != "" {
		name = "edit"
	}
	fs := flag.NewFlagSet("todoctl "+name, flag.ContinueOnError)
	title := fs.String("title", "", "Title")
	description := fs.String("desc", "", "Description")
	tags := fs.String("tags", "", "Comma separated tags")
	image := fs.String("image", "", "Image file to attach")
	var files stringList
	fs.Var(&files, "file", "File to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := client.TodoInput{Title: *title, Description: *description}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "tags" {
			input.Tags = tags
		}
	})

	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	attach := func(path string) (client.Attachment, error) {
		f, err := os.Open(path)
		if err != nil {
			return client.Attachment{}, err
		}
		opened = append(opened, f)
		return client.Attachment{Name: filepath.Base(path), Body: f}, nil
	}

	if *image != "" {
		a, err := attach(*image)
		if err != nil {
			return err
		}
		input.Image = &a
	}
	for _, path := range files {
		a, err := attach(path)
		if err != nil {
			return err
		}
		input.Files = append(input.Files, a)
	}

	view, err := app.TodoView(0)
	if err != nil {
		return err
	}
	todo, err := view.Save(ctx, todoID, input)
	if err != nil {
		return err
	}
	printTodos(out, []client.Todo{*todo})
	return nil
}

func deleteCommand(ctx context.Context, app *client.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: todoctl delete <id>")
	}
	view, err := app.TodoView(0)
	if err != nil {
		return err
	}
	if err := view.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(out, "Todo deleted successfully")
	return nil
}

func downloadCommand(ctx context.Context, app *client.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("todoctl download", flag.ContinueOnError)
	dest := fs.String("o", "", "Output file (default: last path segment of the URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: todoctl download [-o file] <url>")
	}
	fileURL := fs.Arg(0)

	path := *dest
	if path == "" {
		path = filepath.Base(strings.SplitN(fileURL, "?", 2)[0])
	}

	view, err := app.TodoView(0)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := view.Download(ctx, fileURL, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}

func printTodos(out io.Writer, todos []client.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(out, "No todos")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tTAGS\tATTACHMENTS")
	for _, t := range todos {
		attachments := len(t.Files)
		if t.Image != nil {
			attachments++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.TodoID, t.Title, t.Description, strings.Join(t.Tags, ","), attachments)
	}
	tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todoctl-session.toml"
	}
	return filepath.Join(dir, "todoctl", "session.toml")
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todoctl - personal todo list client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todoctl [global options] <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  register -u <user> -p <pass>   Create an account and log in")
	fmt.Fprintln(w, "  login -u <user> -p <pass>      Log in")
	fmt.Fprintln(w, "  logout                         Forget the stored token")
	fmt.Fprintln(w, "  status                         Show who is logged in")
	fmt.Fprintln(w, "  list [-page n] [-limit n] [-search s] [-tag t]")
	fmt.Fprintln(w, "  add -title t -desc d [-tags a,b] [-image f] [-file f]...")
	fmt.Fprintln(w, "  edit <id> [-title t] [-desc d] [-tags a,b] [-image f] [-file f]...")
	fmt.Fprintln(w, "  delete <id>")
	fmt.Fprintln(w, "  download [-o file] <url>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

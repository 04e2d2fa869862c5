// Command cli is a terminal client for the card service.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"serwer-kart/internal/client"
	"serwer-kart/internal/collection"
	"serwer-kart/internal/logging"
	"serwer-kart/internal/models"
	"serwer-kart/internal/storage"
	"strings"

	"golang.org/x/term"
)

const usage = `usage: cli [-server URL] [-dir PATH] <command> [args]

commands:
  register <email>          create an account
  login <email>             log in and remember the session
  logout                    forget the session
  status                    show session state and token balance
  claim                     claim the daily tokens
  draw [-save]              draw a random card (costs a token)
  save -name N [-type T] [-image URL] [-index I]
  cards                     list saved cards
  collection                show cards grouped by generation
  forgot <email>            request a password reset
  reset <token>             set a new password with a reset token
  delete <email>            delete the account and all its cards
`

func main() {
	serverURL := flag.String("server", envOr("KARTY_SERVER", "http://localhost:8080"), "API base URL")
	dir := flag.String("dir", "", "directory for the stored session (default: user config dir)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logging.Setup(envOr("KARTY_LOG_LEVEL", "warn"))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *serverURL, *dir, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, serverURL, dir string, args []string) error {
	if dir == "" {
		var err error
		if dir, err = storage.DefaultDir(); err != nil {
			return err
		}
	}
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return err
	}
	session, err := client.NewSession(store)
	if err != nil {
		return err
	}
	c := client.New(serverURL, session)

	cmd, rest := args[0], args[1:]
	err = dispatch(ctx, c, cmd, rest)
	if errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNotLoggedIn) {
		return fmt.Errorf("%w (run: cli login <email>)", err)
	}
	return err
}

func dispatch(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "register":
		email, err := argEmail(args)
		if err != nil {
			return err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		res, err := c.Register(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		if res.ShowWelcomeModal {
			fmt.Println("Welcome! Claim your daily tokens with `cli claim` and draw with `cli draw`.")
		}
		return nil

	case "login":
		email, err := argEmail(args)
		if err != nil {
			return err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := c.Login(ctx, email, password); err != nil {
			return err
		}
		fmt.Println("logged in")
		return nil

	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "status":
		fmt.Println("session:", c.Session().State())
		if c.Session().State() == client.LoggedOut {
			return nil
		}
		me, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("user: %s\ntokens: %d\n", me.Email, me.Tokens)
		if me.LastTokenClaim != nil {
			fmt.Printf("last claim: %s\n", me.LastTokenClaim.Local().Format("2006-01-02 15:04"))
		}
		return nil

	case "claim":
		res, err := c.ClaimTokens(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s, balance: %d\n", res.Message, res.Tokens)
		return nil

	case "draw":
		fs := flag.NewFlagSet("draw", flag.ContinueOnError)
		save := fs.Bool("save", false, "save the drawn card")
		if err := fs.Parse(args); err != nil {
			return err
		}
		draft, tokens, err := c.DrawCard(ctx)
		if err != nil {
			return err
		}
		printDraft(draft)
		fmt.Printf("tokens left: %d\n", tokens)
		if *save {
			card, err := c.SaveCard(ctx, *draft)
			if err != nil {
				return err
			}
			fmt.Println("saved as", card.ID)
		}
		return nil

	case "save":
		fs := flag.NewFlagSet("save", flag.ContinueOnError)
		name := fs.String("name", "", "card name")
		typ := fs.String("type", "", "card type")
		image := fs.String("image", "", "image URL")
		index := fs.Int("index", 0, "catalog index")
		if err := fs.Parse(args); err != nil {
			return err
		}
		card, err := c.SaveCard(ctx, models.CardDraft{Name: *name, Type: *typ, ImageURL: *image, CatalogIndex: index})
		if err != nil {
			return err
		}
		fmt.Println("saved as", card.ID)
		return nil

	case "cards":
		cards, err := c.ListCards(ctx)
		if err != nil {
			return err
		}
		for _, card := range cards {
			fmt.Printf("%s  #%-4d %-24s %s\n", card.ID, card.CatalogIndex, card.Name, card.Type)
		}
		return nil

	case "collection":
		grouped, err := c.Collection(ctx)
		if err != nil {
			return err
		}
		for _, g := range collection.Generations {
			cards := grouped[g.Label]
			fmt.Printf("%s (%d)\n", g.Label, len(cards))
			for _, card := range cards {
				fmt.Printf("  #%-4d %s\n", card.CatalogIndex, card.Name)
			}
		}
		return nil

	case "forgot":
		email, err := argEmail(args)
		if err != nil {
			return err
		}
		res, err := c.ForgotPassword(ctx, email)
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		if res.ResetToken != "" {
			fmt.Println("reset token:", res.ResetToken)
		}
		return nil

	case "reset":
		if len(args) != 1 {
			return errors.New("usage: cli reset <token>")
		}
		password, err := readPassword("New password: ")
		if err != nil {
			return err
		}
		if err := c.ResetPassword(ctx, args[0], password); err != nil {
			return err
		}
		fmt.Println("password updated")
		return nil

	case "delete":
		email, err := argEmail(args)
		if err != nil {
			return err
		}
		password, err := readPassword("Password (confirms deletion): ")
		if err != nil {
			return err
		}
		if err := c.DeleteAccount(ctx, email, password); err != nil {
			return err
		}
		fmt.Println("account deleted")
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func argEmail(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected exactly one email argument")
	}
	return args[0], nil
}

// readPassword hides input on a terminal and reads a plain line otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func printDraft(d *models.CardDraft) {
	index := "?"
	if d.CatalogIndex != nil {
		index = fmt.Sprint(*d.CatalogIndex)
	}
	fmt.Printf("%s (%s) #%s\n", d.Name, d.Type, index)
	if d.ImageURL != "" {
		fmt.Println(d.ImageURL)
	}
}

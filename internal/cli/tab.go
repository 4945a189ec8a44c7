package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/banner"
	"github.com/xela07ax/mindtussle/internal/domain"
)

func newTabCmd(a *app) *cobra.Command {
	var shieldAddr string
	cmd := &cobra.Command{
		Use:   "tab <page-url>",
		Short: "Open a simulated browser tab against the shield and print banner changes",
		Long: `tab connects to the shield as a page would, asks for the mission status
and shows or hides the distraction banner as updates arrive.
Type "d" and Enter to dismiss the banner ("Got it"), "q" to close the tab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if shieldAddr == "" {
				shieldAddr = a.cfg.Shield.Listen
			}
			return a.runTab(ctx, tabURL(shieldAddr, args[0]), args[0], os.Stdin)
		},
	}
	cmd.Flags().StringVar(&shieldAddr, "shield", "", "shield listen address (default from shield.listen)")
	return cmd
}

func tabURL(shieldAddr, pageURL string) string {
	u := url.URL{Scheme: "ws", Host: shieldAddr, Path: "/tabs"}
	if strings.HasPrefix(shieldAddr, "ws://") || strings.HasPrefix(shieldAddr, "wss://") {
		if parsed, err := url.Parse(shieldAddr); err == nil {
			u = *parsed
			u.Path = strings.TrimSuffix(u.Path, "/") + "/tabs"
		}
	}
	u.RawQuery = url.Values{"url": {pageURL}}.Encode()
	return u.String()
}

// runTab держит одну "вкладку" до закрытия соединения, "q" или отмены контекста.
func (a *app) runTab(ctx context.Context, wsURL, pageURL string, in io.Reader) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect to shield: %w", err)
	}
	defer conn.CloseNow()

	b := banner.New(pageURL)
	fmt.Fprintf(a.out, "Tab open: %s\n", b.Host())

	// Запрос при загрузке страницы
	if err := wsjson.Write(ctx, conn, domain.TabMessage{Type: domain.MsgGetMissionStatus}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan domain.TabMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg domain.TabMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				readErr <- err
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case commands <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "tab closed")
			return nil
		case err := <-readErr:
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				return nil
			}
			return err
		case msg := <-messages:
			a.logger.Debug("tab message", zap.String("type", msg.Type), zap.Bool("active", msg.IsActive))
			a.printBannerEvent(b, b.Handle(msg))
		case c := <-commands:
			switch c {
			case "d":
				a.printBannerEvent(b, b.Dismiss())
			case "q":
				_ = conn.Close(websocket.StatusNormalClosure, "tab closed")
				return nil
			}
		}
	}
}

func (a *app) printBannerEvent(b *banner.Banner, ev banner.Event) {
	switch ev {
	case banner.EventShow:
		c := b.Content()
		fmt.Fprintf(a.out, "🚨 %s\n   %s\n", c.Title, c.Text)
	case banner.EventHide:
		fmt.Fprintln(a.out, "Banner hidden.")
	}
}

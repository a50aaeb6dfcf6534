package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/jrsteele09/openlabs-client/chat"
	"github.com/jrsteele09/openlabs-client/content"
	"github.com/jrsteele09/openlabs-client/gateway"
	"github.com/jrsteele09/openlabs-client/internal/progress"
	"github.com/jrsteele09/openlabs-client/submission"
	"github.com/spf13/cobra"
)

var (
	listPage  int
	listLimit int

	readStyle string
	readWidth int
	readHTML  bool

	submitText  string
	submitFiles []string

	downloadDir string

	askHistory bool
)

var labCmd = &cobra.Command{
	Use:   "lab",
	Short: "Browse, read, submit and download labs",
}

var labListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published labs",
	Args:  cobra.NoArgs,
	RunE:  run(runLabList),
}

var labReadCmd = &cobra.Command{
	Use:   "read <lab-id>",
	Short: "Render a lab in the terminal",
	Long: `Render a lab's markdown in the terminal.

Labs without a markdown asset, or whose markdown cannot be fetched, show a
placeholder built from the title and short description.`,
	Args: cobra.ExactArgs(1),
	RunE: run(runLabRead),
}

var labTOCCmd = &cobra.Command{
	Use:   "toc <lab-id>",
	Short: "Print a lab's table of contents",
	Args:  cobra.ExactArgs(1),
	RunE:  run(runLabTOC),
}

var labSubmitCmd = &cobra.Command{
	Use:   "submit <lab-id>",
	Short: "Submit a solution, spending one point",
	Args:  cobra.ExactArgs(1),
	RunE:  run(runLabSubmit),
}

var labDownloadCmd = &cobra.Command{
	Use:   "download <lab-id>",
	Short: "Download every asset of a lab, one at a time",
	Args:  cobra.ExactArgs(1),
	RunE:  run(runLabDownload),
}

var labAskCmd = &cobra.Command{
	Use:   "ask <lab-id> [question]",
	Short: "Ask the lab assistant a question",
	Long: `Ask the lab assistant about a lab. The conversation is kept per user
and lab; --history prints it before the new question is sent. Without a
question only the history is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: run(runLabAsk),
}

func init() {
	labListCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	labListCmd.Flags().IntVar(&listLimit, "limit", 20, "labs per page")

	labReadCmd.Flags().StringVar(&readStyle, "style", "", `glamour style ("dark", "light", "notty"; default detects the terminal)`)
	labReadCmd.Flags().IntVar(&readWidth, "width", 100, "wrap width")
	labReadCmd.Flags().BoolVar(&readHTML, "html", false, "print the rendered HTML instead")

	labSubmitCmd.Flags().StringVarP(&submitText, "text", "t", "", "solution text")
	labSubmitCmd.Flags().StringArrayVarP(&submitFiles, "file", "f", nil, "file to attach (repeatable)")

	labDownloadCmd.Flags().StringVarP(&downloadDir, "dir", "d", ".", "destination directory")

	labAskCmd.Flags().BoolVar(&askHistory, "history", false, "print the conversation so far")

	labCmd.AddCommand(labListCmd, labReadCmd, labTOCCmd, labSubmitCmd, labDownloadCmd, labAskCmd)
	rootCmd.AddCommand(labCmd)
}

func parseLabID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lab id %q", arg)
	}
	return id, nil
}

func (a *app) newPage() *content.Page {
	log := a.log.With().Str("component", "content").Logger()
	pipeline := content.NewPipeline(
		content.WithImageStore(a.objects),
		content.WithProbeConcurrency(a.settings.GetImageProbeConcurrency()),
		content.WithLogger(log),
	)
	return content.NewPage(a.gateway, a.objects, content.WithPipeline(pipeline), content.WithPageLogger(log))
}

func (a *app) loadLab(cmd *cobra.Command, arg string) (content.Snapshot, *content.Page, error) {
	labID, err := parseLabID(arg)
	if err != nil {
		return content.Snapshot{}, nil, err
	}
	ctx, cancel := withTimeout(cmd, a)
	defer cancel()

	page := a.newPage()
	snap, err := page.Load(ctx, labID)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return snap, nil, err
	}
	return snap, page, nil
}

func runLabList(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := withTimeout(cmd, a)
	defer cancel()
	list, err := a.gateway.ListLabs(ctx, listPage, listLimit)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return err
	}
	for _, lab := range list.Labs {
		printf(cmd, "%6d  %-40s  %s %s\n", lab.ID, lab.Title, lab.AuthorName, lab.AuthorSurname)
	}
	printf(cmd, "page %d of %d (%d labs)\n", list.Pagination.CurrentPage, list.Pagination.TotalPages, list.Pagination.TotalItems)
	return nil
}

func runLabRead(cmd *cobra.Command, args []string, a *app) error {
	snap, _, err := a.loadLab(cmd, args[0])
	if err != nil {
		return err
	}
	for _, img := range snap.Document.Images {
		if img.State == content.ImageNotFound {
			a.log.Warn().Str("image", img.Ref).Msg("image not found in storage")
		}
	}
	if snap.Placeholder {
		a.log.Info().Int64("lab", snap.LabID).Msg("lab content not available, showing overview")
	}

	if readHTML {
		_, err := io.WriteString(cmd.OutOrStdout(), snap.Document.HTML)
		return err
	}
	r, err := content.NewTerminalRenderer(readStyle, readWidth)
	if err != nil {
		return err
	}
	out, err := r.Render(snap.Markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

func runLabTOC(cmd *cobra.Command, args []string, a *app) error {
	snap, page, err := a.loadLab(cmd, args[0])
	if err != nil {
		return err
	}
	printf(cmd, "%s\n", snap.Lab.Title)
	for _, e := range page.TOC() {
		printf(cmd, "%s- %s  #%s\n", strings.Repeat("  ", e.Level-1), e.Title, e.ID)
	}
	return nil
}

func runLabSubmit(cmd *cobra.Command, args []string, a *app) error {
	labID, err := parseLabID(args[0])
	if err != nil {
		return err
	}

	draft := submission.Draft{Text: submitText}
	for _, path := range submitFiles {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		draft.Files = append(draft.Files, gateway.File{Name: filepath.Base(path), Content: f})
	}

	gate := submission.NewGate(a.manager, a.gateway, submission.WithLogger(a.log))
	if !gate.CanSubmit(draft) {
		if u := a.manager.CurrentUser(); u == nil || !u.CanAfford(submission.Cost) {
			return fmt.Errorf("submitting needs a signed-in user with at least %d point", submission.Cost)
		}
		return fmt.Errorf("add --text or at least one --file")
	}

	ctx, cancel := withTimeout(cmd, a)
	defer cancel()
	meta, err := gate.Submit(ctx, labID, draft)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return err
	}
	if meta != nil {
		printf(cmd, "Submission %d created\n", meta.SubmissionID)
	}
	printf(cmd, "Balance: %d\n", a.manager.CurrentUser().Balance)
	return nil
}

func runLabDownload(cmd *cobra.Command, args []string, a *app) error {
	labID, err := parseLabID(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assets, err := a.gateway.ListLabAssets(ctx, labID)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return err
	}
	if len(assets.Assets) == 0 {
		printf(cmd, "Lab %d has no assets\n", labID)
		return nil
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return err
	}

	save := func(asset gateway.Asset, data []byte) error {
		return os.WriteFile(filepath.Join(downloadDir, filepath.Base(asset.Filename)), data, 0o644)
	}
	reporter := progress.NewReporter(cmd.ErrOrStderr())
	reporter.Start(len(assets.Assets))
	err = a.gateway.DownloadAll(ctx, labID, assets.Assets, save,
		gateway.WithDelay(a.settings.GetDownloadDelay()),
		gateway.WithProgress(func(done, total int, asset gateway.Asset) {
			reporter.Update(done, asset.Filename)
		}),
	)
	reporter.Finish()
	if err != nil {
		return err
	}
	printf(cmd, "Downloaded %d assets to %s\n", len(assets.Assets), downloadDir)
	return nil
}

func runLabAsk(cmd *cobra.Command, args []string, a *app) error {
	labID, err := parseLabID(args[0])
	if err != nil {
		return err
	}
	u := a.manager.CurrentUser()
	if u == nil {
		return fmt.Errorf("the lab assistant needs a signed-in user")
	}
	question := strings.Join(args[1:], " ")

	ctx, cancel := withTimeout(cmd, a)
	defer cancel()
	if askHistory || strings.TrimSpace(question) == "" {
		history, err := a.chat.History(ctx, u.ID, labID)
		if err != nil {
			return err
		}
		for _, msg := range history {
			printChat(cmd, msg)
		}
	}
	if strings.TrimSpace(question) == "" {
		return nil
	}

	reply, err := a.chat.Ask(ctx, u.ID, labID, question)
	if err != nil {
		return fmt.Errorf("the assistant could not answer, try again later: %w", err)
	}
	printChat(cmd, *reply)
	return nil
}

func printChat(cmd *cobra.Command, msg chat.Message) {
	who := "assistant"
	if msg.FromUser {
		who = "you"
	}
	printf(cmd, "%s> %s\n", who, msg.Content)
}

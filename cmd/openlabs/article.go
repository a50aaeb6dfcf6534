package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/jrsteele09/openlabs-client/content"
	"github.com/spf13/cobra"
)

var (
	articlePage  int
	articleLimit int

	articleFile string
	articleOut  string
)

var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Browse, read and download articles",
}

var articleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published articles",
	Args:  cobra.NoArgs,
	RunE:  run(runArticleList),
}

var articleReadCmd = &cobra.Command{
	Use:   "read <article-id>",
	Short: "Show an article and check its PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  run(runArticleRead),
}

var articleDownloadCmd = &cobra.Command{
	Use:   "download <article-id>",
	Short: "Save an article's PDF",
	Long: `Save an article's PDF. Ctrl-C abandons the download and nothing is
written.`,
	Args: cobra.ExactArgs(1),
	RunE: run(runArticleDownload),
}

func init() {
	articleListCmd.Flags().IntVar(&articlePage, "page", 1, "page number")
	articleListCmd.Flags().IntVar(&articleLimit, "limit", 20, "articles per page")

	for _, c := range []*cobra.Command{articleReadCmd, articleDownloadCmd} {
		c.Flags().StringVar(&articleFile, "file", "", `object name of the PDF (default "<article-id>.pdf")`)
	}
	articleDownloadCmd.Flags().StringVarP(&articleOut, "out", "o", "", "destination file (default the object name)")

	articleCmd.AddCommand(articleListCmd, articleReadCmd, articleDownloadCmd)
	rootCmd.AddCommand(articleCmd)
}

func parseArticleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid article id %q", arg)
	}
	return id, nil
}

func (a *app) openArticle(cmd *cobra.Command, arg string) (*content.ArticlePDF, error) {
	articleID, err := parseArticleID(arg)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, a.settings.GetRequestTimeout())
	defer cancel()

	reader := content.NewArticleReader(a.gateway, a.objects,
		content.WithArticleLogger(a.log.With().Str("component", "content").Logger()))
	defer reader.Close()
	doc, err := reader.Open(ctx, articleID, articleFile)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return nil, err
	}
	return doc, nil
}

func runArticleList(cmd *cobra.Command, args []string, a *app) error {
	ctx, cancel := withTimeout(cmd, a)
	defer cancel()
	list, err := a.gateway.ListArticles(ctx, articlePage, articleLimit)
	if err != nil {
		a.manager.HandleAuthError(cmd.Context(), err)
		return err
	}
	for _, article := range list.Articles {
		printf(cmd, "%6d  %-40s  %s %s\n", article.ID, article.Title, article.AuthorName, article.AuthorSurname)
	}
	printf(cmd, "page %d of %d (%d articles)\n", list.Pagination.CurrentPage, list.Pagination.TotalPages, list.Pagination.TotalItems)
	return nil
}

func runArticleRead(cmd *cobra.Command, args []string, a *app) error {
	doc, err := a.openArticle(cmd, args[0])
	if err != nil {
		return err
	}
	article := doc.Article
	printf(cmd, "%s\n", article.Title)
	printf(cmd, "by %s %s, %s, %d views\n", article.AuthorName, article.AuthorSurname, article.CreatedAt, article.Views)
	if article.ShortDesc != "" {
		printf(cmd, "\n%s\n", article.ShortDesc)
	}
	printf(cmd, "\n%s: %d bytes, save it with \"openlabs article download %d\"\n", doc.Filename, len(doc.Data), article.ID)
	return nil
}

func runArticleDownload(cmd *cobra.Command, args []string, a *app) error {
	doc, err := a.openArticle(cmd, args[0])
	if err != nil {
		return err
	}
	out := articleOut
	if out == "" {
		out = filepath.Base(doc.Filename)
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return err
	}
	printf(cmd, "Saved %s (%d bytes)\n", out, len(doc.Data))
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/scheduler"
	"github.com/spf13/cobra"
)

func newDownloadCmd() *cobra.Command {
	var (
		kind      string
		season    int
		episode   int
		languages string
		quality   string
	)

	cmd := &cobra.Command{
		Use:   "download <content-id>",
		Short: "Admit a movie or episode for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID := args[0]

			contentKind := domain.ContentMovie
			if kind == "episode" {
				contentKind = domain.ContentEpisode
			} else if kind != "movie" {
				return fmt.Errorf("unknown --kind %q, want movie or episode", kind)
			}

			langs := splitCSV(languages)
			if len(langs) == 0 {
				langs = sharedApp.cfg.DefaultLanguages
			}
			if quality == "" {
				quality = sharedApp.cfg.DefaultQuality
			}

			req := scheduler.Request{
				Kind:      contentKind,
				ContentID: contentID,
				Languages: langs,
				Quality:   quality,
				BasePath:  sharedApp.cfg.DownloadBasePath,
			}
			if contentKind == domain.ContentEpisode {
				req.Season = &season
				req.Episode = &episode
			}

			task, err := sharedApp.scheduler.Admit(context.Background(), req)
			if err != nil {
				return fmt.Errorf("admit: %w", err)
			}

			if uiFlag {
				return runProgressUI(sharedApp.bus, task.ID)
			}
			return watchPlain(sharedApp.bus, task.ID)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "movie", "content kind: movie or episode")
	cmd.Flags().IntVar(&season, "season", 1, "season number (episode only)")
	cmd.Flags().IntVar(&episode, "episode", 1, "episode number (episode only)")
	cmd.Flags().StringVar(&languages, "languages", "", "comma-separated language codes, defaults to config")
	cmd.Flags().StringVar(&quality, "quality", "", "preferred video quality, defaults to config")
	return cmd
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

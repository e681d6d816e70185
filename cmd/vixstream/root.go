package main

import (
	"github.com/alvarorichard/vixstream/internal/catalog"
	"github.com/alvarorichard/vixstream/internal/config"
	"github.com/alvarorichard/vixstream/internal/resolver"
	"github.com/alvarorichard/vixstream/internal/vixlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appViper is the CLI's configuration source, the same
// spf13/viper-backed pattern as internal/config's loader, mirroring
// jmylchreest/tvarr's daemonViper shape.
var appViper = viper.New()

var (
	debugFlag     bool
	uiFlag        bool
	muxBinaryFlag string
	sharedApp     *app
)

// newRootCmd builds the vixstream command tree: download, list,
// cancel, clear, grounded on jmylchreest/tvarr's cmd/tvarr-ffmpegd/cmd
// root+subcommand layout.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vixstream",
		Short: "HLS acquisition engine: resolve, download, decrypt and remux tracks into a single file",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			vixlog.Init(debugFlag)
			appViper.SetEnvPrefix("VIXSTREAM")
			appViper.AutomaticEnv()
			cfg := config.Load(appViper)
			sharedApp = newApp(cfg, catalog.NewHTTPLookup(nil, cfg.ExtractorBaseURL), resolver.NewHTTPResolver(nil, cfg.ExtractorBaseURL), muxBinaryFlag)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			sharedApp.close()
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&uiFlag, "ui", false, "show a live Bubble Tea progress UI instead of plain log lines")
	root.PersistentFlags().StringVar(&muxBinaryFlag, "mux-binary", "ffmpeg", "path to the external codec-copy/mux binary")

	root.AddCommand(newDownloadCmd(), newListCmd(), newCancelCmd(), newClearCmd())
	return root
}

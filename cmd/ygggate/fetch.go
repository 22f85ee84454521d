package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ygggate/ygggate/internal/gateway"
)

const cooldownTemplate = `{{string . "prefix"}}{{bar . }} {{rtime . "%s left"}}`

func RunFetchCommand(configPath *string) *cobra.Command {
	var (
		outputDir string
		cookie    string
		quiet     bool
	)

	command := &cobra.Command{
		Use:   "fetch <torrent-id>",
		Short: "Download one torrent file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid torrent id %q", args[0])
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Close()

			gw, err := gateway.Build(cfg, nil, log.Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}
			if !quiet && gw.Cooldown() > 0 {
				gw.SetCooldownSleeper(cooldownBar)
			}

			file, err := gw.Download(cmd.Context(), cookie, id)
			if err != nil {
				return err
			}

			path := filepath.Join(outputDir, file.Filename())
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			cmd.Printf("Saved %s (%d bytes)\n", path, len(file.Data))
			if file.Metadata != nil {
				cmd.Printf("  name: %s\n  info hash: %s\n", file.Metadata.Name, file.Metadata.InfoHash)
			}
			return nil
		},
	}

	command.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to write the .torrent file to")
	command.Flags().StringVar(&cookie, "cookie", "", "use this cookie header instead of logging in")
	command.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not show the cooldown progress bar")
	return command
}

// cooldownBar waits d while rendering a progress bar, one tick per second.
func cooldownBar(d time.Duration) {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		time.Sleep(d)
		return
	}

	bar := pb.ProgressBarTemplate(cooldownTemplate).Start64(seconds)
	bar.Set("prefix", "Waiting for the download token: ")
	defer bar.Finish()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range seconds {
		<-ticker.C
		bar.Increment()
	}
}

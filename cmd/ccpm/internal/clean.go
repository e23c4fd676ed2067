package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/ccpm/internal/env"
)

var cleanCache bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove installed dependencies and the project build directory",
	Long: `Clean removes .ccpm/ and build/ from the project root. With --cache it also
removes the shared clone and build cache, forcing every dependency of every
project to be fetched and built again.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanCache, "cache", "c", false, "Also remove the download cache (~/.ccpm or $CCPM_HOME)")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := env.LoadDotEnv(root); err != nil {
		return err
	}
	dirs := []string{env.InstallDir(root), projectBuildDir(root)}
	if cleanCache {
		dl, err := env.DownloadDir()
		if err != nil {
			return err
		}
		dirs = append(dirs, dl)
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[CCPM] :: Removed %s\n", dir)
	}
	return nil
}

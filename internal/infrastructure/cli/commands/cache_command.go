package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/ports"
)

// NewCacheCommand creates the cache command with all subcommands
func NewCacheCommand(open ContainerFunc) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the tool output cache",
	}

	cacheCmd.AddCommand(
		newCacheClearCommand(open),
		newCacheSizeCommand(open),
	)

	return cacheCmd
}

func newCacheClearCommand(open ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			return clearCache(cmd.OutOrStdout(), container.Cache)
		},
	}
}

func newCacheSizeCommand(open ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Show cache location and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			return showCacheSize(cmd.OutOrStdout(), container.Cache)
		},
	}
}

func clearCache(out io.Writer, cache ports.CacheRepository) error {
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(out, MsgCacheCleared)
	return nil
}

func showCacheSize(out io.Writer, cache ports.CacheRepository) error {
	dir := cache.Dir()
	files, totalSize, err := calculateDirectorySize(dir)
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	fmt.Fprintf(out, "Cache directory: %s\nEntries: %d\nSize: %d bytes\n", dir, files, totalSize)
	return nil
}

// calculateDirectorySize counts regular files under dirPath. A missing
// directory is empty.
func calculateDirectorySize(dirPath string) (int, int64, error) {
	var (
		files     int
		totalSize int64
	)

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dirPath {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files++
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return files, totalSize, nil
}

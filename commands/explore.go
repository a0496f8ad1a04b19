package commands

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zeu5/snake-rl/explorer"
	"github.com/zeu5/snake-rl/snake"
)

func ExploreCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Inspect a trained memory interactively or over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, done := interruptible(cmd.Context())
			defer done()

			c, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			path, err := memoryPath(memory, false)
			if err != nil {
				return err
			}
			var world *snake.World
			if len(c.Worlds) > 0 {
				if world, err = loadWorld(c.Worlds[0].Name); err != nil {
					return err
				}
			}
			rng := newRand()
			table, closeTable, err := newTable(ctx, c, rng)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, closeTable())
			}()

			e, err := explorer.NewExplorer(ctx, path, table, world, rng)
			if err != nil {
				return err
			}
			if listen == "" {
				e.Interact(ctx, os.Stdin, os.Stdout)
				return nil
			}

			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			server := &http.Server{Addr: listen, Handler: e.Router()}
			go func() {
				<-ctx.Done()
				server.Close()
			}()
			newLogger().Info("serving memory", "memory", path, "address", listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Serve the memory over HTTP on this address instead of the terminal")
	return cmd
}

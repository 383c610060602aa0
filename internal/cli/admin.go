package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"legalrag/internal/api"
)

var (
	statsJSON  bool
	serveAddr  string
	clearForce bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}

		if statsJSON {
			output, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("Collection:  %s\n", stats.Name)
		fmt.Printf("Backend:     %s\n", stats.Backend)
		fmt.Printf("Location:    %s\n", stats.Location)
		fmt.Printf("Chunks:      %d\n", stats.Count)
		if a.Compressor != nil {
			fmt.Printf("Compression: %s\n", a.Compressor.Method())
		} else {
			fmt.Printf("Compression: disabled\n")
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := GetConfig().Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		method := "disabled"
		if a.Compressor != nil {
			method = a.Compressor.Method()
		}

		gin.SetMode(gin.ReleaseMode)
		h := api.NewHandler(a.Query, a.Ingest, a.Store, method, a.Logger)
		return api.Serve(ctx, addr, api.NewRouter(h), a.Logger)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored chunk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearForce {
			fmt.Print("This removes all ingested documents. Continue? [y/N] ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Println("Store cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, serveCmd, clearCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	clearCmd.Flags().BoolVarP(&clearForce, "yes", "y", false, "skip confirmation")
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Jcruzb/controlants/internal/cli"
	"github.com/Jcruzb/controlants/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagCatName string
	flagCatIcon string
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List spending categories",
	RunE:  runCategories,
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a category",
	RunE:  runCategoriesAdd,
}

func init() {
	categoriesAddCmd.Flags().StringVar(&flagCatName, "name", "", "Category name")
	categoriesAddCmd.Flags().StringVar(&flagCatIcon, "icon", "", "Emoji icon")
	categoriesCmd.AddCommand(categoriesAddCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(_ *cobra.Command, _ []string) error {
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	cats, err := client.Categories(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	if len(cats) == 0 {
		fmt.Printf("  %s\n", cli.RenderMuted("No hay categorías. Sugeridas: "+strings.Join(model.DefaultCategories, ", ")))
		fmt.Println()
		return nil
	}
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Icon, c.Name})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Categorías",
		Headers: []string{"ID", "Icono", "Nombre"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runCategoriesAdd(_ *cobra.Command, _ []string) error {
	name := strings.TrimSpace(flagCatName)
	if name == "" {
		return errors.New("--name is required")
	}
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	c, err := client.CreateCategory(context.Background(), model.CategoryCreate{Name: name, Icon: strings.TrimSpace(flagCatIcon)})
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s  #%d %s %s\n\n", cli.RenderStatus("Categoría creada", cli.LevelOK), c.ID, c.Icon, c.Name)
	return nil
}

// parseID reads a positive numeric id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		name     string
		testType string
		page     string
		variants string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new A/B test",
		Long: `Create a new A/B test. Without flags the command prompts interactively.

Examples:
  cro-pilot create --name "CTA wording" --type cta_text --variants "Vraag offerte aan,Beschikbaarheid checken"
  cro-pilot create --name "Hero video length" --type hero_video_length --page homepage --variants "Short,Long"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				var err error
				name, testType, page, variants, err = promptTestDetails()
				if err != nil {
					return err
				}
			}

			variantNames := strings.Split(variants, ",")
			for i := range variantNames {
				variantNames[i] = strings.TrimSpace(variantNames[i])
			}
			if len(variantNames) < 2 {
				return fmt.Errorf("need at least 2 variants. Example: --variants \"A,B\"")
			}

			return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
				test := &store.Test{
					Name:       name,
					Type:       testType,
					TargetPage: page,
					Hypothesis: name,
				}
				for _, vn := range variantNames {
					test.Variants = append(test.Variants, store.Variant{Name: vn})
				}

				created, err := eng.CreateTest(context.Background(), test)
				if err != nil {
					return fmt.Errorf("failed to create test: %w", err)
				}

				fmt.Printf("Test created: %s (ID: %s)\n", created.Name, created.ID)
				for _, v := range created.Variants {
					fmt.Printf("  %s: %s (%.1f%% traffic)\n", v.ID, v.Name, v.TrafficAllocation)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "test name")
	cmd.Flags().StringVarP(&testType, "type", "t", "", "test type (e.g. cta_text, hero_content)")
	cmd.Flags().StringVar(&page, "page", "", "target page (defaults to homepage)")
	cmd.Flags().StringVar(&variants, "variants", "", "comma-separated variant names")
	return cmd
}

func promptTestDetails() (name, testType, page, variants string, err error) {
	name, err = promptText("Test name")
	if err != nil {
		return
	}

	typeSelect := promptui.Select{
		Label: "Test type",
		Items: []string{
			"hero_content", "hero_video_length", "cta_text", "cta_color",
			"gallery_order", "content_order", "custom",
		},
		Size: 7,
	}
	_, testType, err = typeSelect.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return
	}
	if testType == "custom" {
		testType, err = promptText("Custom test type")
		if err != nil {
			return
		}
	}

	page, err = promptText("Target page (empty for homepage)")
	if err != nil {
		return
	}

	variants, err = promptText("Variants (comma-separated)")
	return
}

func promptText(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	value, err := prompt.Run()
	if err == promptui.ErrInterrupt {
		os.Exit(0)
	}
	return strings.TrimSpace(value), err
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sidequest/internal/models"
	"sidequest/internal/services"
)

func newGenerateCmd(app *App) *cobra.Command {
	var (
		difficulty  string
		category    string
		idea        string
		count       int
		save        bool
		autoPublish bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate quests with the configured model",
		Long: "Generate one or more quests. Quick mode alternates between fitness and learning\n" +
			"when no category is given; passing --idea switches to custom mode.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			svc, err := app.Backend.AIQuests(cmd.Context())
			if err != nil {
				return err
			}

			actor := services.Actor{UserID: app.Config.GetInt64("as-user"), Role: models.RoleAdmin}
			difficulty = strings.ToLower(strings.TrimSpace(difficulty))

			results := make([]*services.GenerateQuestResponse, 0, count)
			previous := ""
			for i := 0; i < count; i++ {
				var resp *services.GenerateQuestResponse
				if idea != "" {
					resp, err = svc.FromIdea(cmd.Context(), actor, &services.QuestFromIdeaRequest{
						Idea:        idea,
						Difficulty:  difficulty,
						Category:    category,
						Save:        save,
						AutoPublish: autoPublish,
					})
				} else {
					resp, err = svc.Generate(cmd.Context(), actor, &services.GenerateQuestRequest{
						Mode:             "quick",
						Difficulty:       difficulty,
						Category:         category,
						PreviousCategory: previous,
						Save:             save,
						AutoPublish:      autoPublish,
					})
				}
				if err != nil {
					return fmt.Errorf("generation %d of %d failed: %w", i+1, count, err)
				}
				previous = resp.Quest.Category
				results = append(results, resp)
			}

			if app.jsonOutput() {
				return app.writeJSON(results)
			}
			for _, r := range results {
				app.printf("[%s/%s] %s (%d XP, %d min) source=%s\n",
					r.Quest.Category, r.Quest.Difficulty, r.Quest.Title, r.Quest.XP, r.Quest.DurationMin, r.Source)
				if r.FallbackReason != "" {
					app.printf("  fallback: %s\n", r.FallbackReason)
				}
				if r.Saved != nil {
					app.printf("  saved as quest %d (%s)\n", r.Saved.ID, r.Saved.Status)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", "easy", "easy, medium, hard or epic")
	cmd.Flags().StringVar(&category, "category", "", "fitness or learning; alternates when empty")
	cmd.Flags().StringVar(&idea, "idea", "", "free-text idea for a custom quest")
	cmd.Flags().IntVar(&count, "count", 1, "number of quests to generate")
	cmd.Flags().BoolVar(&save, "save", false, "store generated quests")
	cmd.Flags().BoolVar(&autoPublish, "publish", false, "publish stored quests immediately")
	return cmd
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskplanner/internal/domain/errors"
	"taskplanner/internal/domain/models"
	"taskplanner/internal/schedule"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var (
	addDue         string
	addDescription string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks, soonest due first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var listOverdue bool

var completeCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a task as completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Move a completed task back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runReopen,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a task's title or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var (
	editTitle       string
	editDescription string
)

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	addCmd.Flags().StringVar(&addDue, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	addCmd.Flags().StringVar(&addDescription, "desc", "", "task description")
	_ = addCmd.MarkFlagRequired("due")

	listCmd.Flags().BoolVar(&listOverdue, "overdue", false, "only overdue tasks")

	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editDescription, "desc", "", "new description")

	rootCmd.AddCommand(addCmd, listCmd, completeCmd, reopenCmd, editCmd, rmCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	task, err := api.CreateTask(cmd.Context(), models.CreateTaskRequest{
		Title:       args[0],
		Description: addDescription,
		DueDate:     addDue,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", renderTaskLine(*task, time.Now()))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var tasks []models.Task
	var err error
	if listOverdue {
		tasks, err = api.OverdueTasks(cmd.Context())
	} else {
		tasks, err = api.Tasks(cmd.Context())
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	now := time.Now()
	for _, task := range tasks {
		fmt.Println(renderTaskLine(task, now))
	}
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	tasks, err := api.Tasks(cmd.Context())
	if err != nil {
		return err
	}

	// Mirror the server's completion guard before sending anything: the
	// request would be rejected anyway, so refuse it locally with the
	// same message.
	for _, task := range tasks {
		if task.ID == args[0] {
			if st := schedule.Derive(task, time.Now()); !st.CanMarkCompleted && task.Status == models.StatusPending {
				return errors.ErrFutureCompletion
			}
			break
		}
	}

	status := models.StatusCompleted
	task, err := api.UpdateTask(cmd.Context(), args[0], models.UpdateTaskRequest{Status: &status})
	if err != nil {
		return err
	}
	fmt.Printf("Completed %s\n", renderTaskLine(*task, time.Now()))
	return nil
}

func runReopen(cmd *cobra.Command, args []string) error {
	status := models.StatusPending
	task, err := api.UpdateTask(cmd.Context(), args[0], models.UpdateTaskRequest{Status: &status})
	if err != nil {
		return err
	}
	fmt.Printf("Reopened %s\n", renderTaskLine(*task, time.Now()))
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	var req models.UpdateTaskRequest
	if cmd.Flags().Changed("title") {
		req.Title = &editTitle
	}
	if cmd.Flags().Changed("desc") {
		req.Description = &editDescription
	}
	if req.Title == nil && req.Description == nil {
		return fmt.Errorf("nothing to change; pass --title or --desc")
	}

	task, err := api.UpdateTask(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", renderTaskLine(*task, time.Now()))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := api.DeleteTask(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("Task deleted successfully")
	return nil
}

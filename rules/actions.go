package rules

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Handler runs one action kind. Built-in handlers are stubs that log the
// intended effect and return an acknowledgment record; production deployments
// register real handlers for the action types they care about.
type Handler func(params map[string]any, ctx Context) (map[string]any, error)

// Executor dispatches actions to registered handlers and collects results.
type Executor struct {
	handlers map[ActionType]Handler
}

// NewExecutor creates an executor with all built-in handlers registered.
func NewExecutor() *Executor {
	ex := &Executor{handlers: make(map[ActionType]Handler)}
	ex.Register(ActionSendNotification, sendNotification)
	ex.Register(ActionUpdateStatus, updateStatus)
	ex.Register(ActionRequireApproval, requireApproval)
	ex.Register(ActionAssignUser, assignUser)
	ex.Register(ActionCreateTask, createTask)
	ex.Register(ActionUpdateProject, updateProject)
	ex.Register(ActionLogEvent, logEvent)
	ex.Register(ActionTriggerWorkflow, triggerWorkflow)
	return ex
}

// Register installs or replaces the handler for an action type.
func (ex *Executor) Register(t ActionType, h Handler) {
	ex.handlers[t] = h
}

// Execute runs a single action. An unregistered action type yields an
// explicit unhandled-action failure rather than a silent empty result, and a
// handler error is captured in the result instead of being returned.
func (ex *Executor) Execute(action Action, ctx Context) ActionResult {
	handler, ok := ex.handlers[action.Type]
	if !ok {
		log.Warn().Str("action", string(action.Type)).Msg("unknown action type")
		return ActionResult{
			Action:  action.Type,
			Success: false,
			Error:   fmt.Sprintf("unhandled action type: %s", action.Type),
		}
	}

	result, err := handler(action.Params, ctx)
	if err != nil {
		log.Error().Err(err).Str("action", string(action.Type)).Msg("action execution failed")
		return ActionResult{
			Action:  action.Type,
			Success: false,
			Error:   err.Error(),
		}
	}

	return ActionResult{
		Action:  action.Type,
		Success: true,
		Result:  result,
	}
}

// ExecuteAll runs every action independently, in order. One action failing
// does not stop the rest; there is no rollback across the list.
func (ex *Executor) ExecuteAll(actions []Action, ctx Context) []ActionResult {
	results := make([]ActionResult, 0, len(actions))
	for _, action := range actions {
		results = append(results, ex.Execute(action, ctx))
	}
	return results
}

// Built-in stub handlers. Each logs what a real integration would do and
// echoes the parameters back as an acknowledgment.

func sendNotification(params map[string]any, _ Context) (map[string]any, error) {
	kind := stringParam(params, "type", "email")
	recipient := stringParam(params, "recipient", "")
	message := stringParam(params, "message", "")

	log.Info().
		Str("type", kind).
		Str("recipient", recipient).
		Str("message", message).
		Msg("sending notification")

	return map[string]any{
		"notification_sent": true,
		"type":              kind,
		"recipient":         recipient,
		"message":           message,
	}, nil
}

func updateStatus(params map[string]any, _ Context) (map[string]any, error) {
	entityType := stringParam(params, "entity_type", "")
	entityID := stringParam(params, "entity_id", "")
	status := stringParam(params, "status", "")

	log.Info().
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("status", status).
		Msg("updating status")

	return map[string]any{
		"status_updated": true,
		"entity_type":    entityType,
		"entity_id":      entityID,
		"new_status":     status,
	}, nil
}

func requireApproval(params map[string]any, _ Context) (map[string]any, error) {
	approverRole := stringParam(params, "approver_role", "admin")
	entityType := stringParam(params, "entity_type", "")
	entityID := stringParam(params, "entity_id", "")

	log.Info().
		Str("approver_role", approverRole).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Msg("requiring approval")

	return map[string]any{
		"approval_required": true,
		"approver_role":     approverRole,
		"entity_type":       entityType,
		"entity_id":         entityID,
	}, nil
}

func assignUser(params map[string]any, _ Context) (map[string]any, error) {
	userID := stringParam(params, "user_id", "")
	role := stringParam(params, "role", "")
	entityType := stringParam(params, "entity_type", "")
	entityID := stringParam(params, "entity_id", "")

	log.Info().
		Str("user_id", userID).
		Str("role", role).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Msg("assigning user")

	return map[string]any{
		"user_assigned": true,
		"user_id":       userID,
		"role":          role,
		"entity_type":   entityType,
		"entity_id":     entityID,
	}, nil
}

func createTask(params map[string]any, _ Context) (map[string]any, error) {
	title := stringParam(params, "title", "")
	description := stringParam(params, "description", "")
	assignee := stringParam(params, "assignee", "")
	dueDate := stringParam(params, "due_date", "")

	log.Info().Str("title", title).Str("assignee", assignee).Msg("creating task")

	return map[string]any{
		"task_created": true,
		"title":        title,
		"description":  description,
		"assignee":     assignee,
		"due_date":     dueDate,
	}, nil
}

func updateProject(params map[string]any, _ Context) (map[string]any, error) {
	projectID := stringParam(params, "project_id", "")
	updates, _ := params["updates"].(map[string]any)

	log.Info().Str("project_id", projectID).Interface("updates", updates).Msg("updating project")

	return map[string]any{
		"project_updated": true,
		"project_id":      projectID,
		"updates":         updates,
	}, nil
}

func logEvent(params map[string]any, _ Context) (map[string]any, error) {
	eventType := stringParam(params, "event_type", "")
	message := stringParam(params, "message", "")
	level := stringParam(params, "level", "info")

	log.Info().
		Str("event_type", eventType).
		Str("level", level).
		Str("message", message).
		Msg("logging event")

	return map[string]any{
		"event_logged": true,
		"event_type":   eventType,
		"message":      message,
		"level":        level,
	}, nil
}

func triggerWorkflow(params map[string]any, _ Context) (map[string]any, error) {
	workflowName := stringParam(params, "workflow_name", "")
	workflowParams, _ := params["workflow_params"].(map[string]any)

	log.Info().Str("workflow", workflowName).Msg("triggering workflow")

	return map[string]any{
		"workflow_triggered": true,
		"workflow_name":      workflowName,
		"workflow_params":    workflowParams,
	}, nil
}

func stringParam(params map[string]any, key, fallback string) string {
	if params == nil {
		return fallback
	}
	v, ok := params[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

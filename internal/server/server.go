package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"labdesk/internal/domain"
	"labdesk/internal/engine"
	"labdesk/internal/engine/auth"
	"labdesk/internal/repo"
)

const apiBasePath = "/v1"

type Config struct {
	Engine  engine.Engine
	Auth    AuthConfig
	Version string
}

type errorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// apiError is the error envelope for every non-2xx response.
type apiError struct {
	status  int
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details,omitempty"`
}

func (e *apiError) Error() string  { return e.Message }
func (e *apiError) GetStatus() int { return e.status }

func newAPIError(status int, code, message string, details []errorDetail) *apiError {
	return &apiError{status: status, Code: code, Message: message, Details: details}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	default:
		return "internal_error"
	}
}

func init() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		details := make([]errorDetail, 0, len(errs))
		for _, err := range errs {
			if err == nil {
				continue
			}
			if d, ok := err.(*huma.ErrorDetail); ok {
				details = append(details, errorDetail{Field: d.Location, Message: d.Message})
				continue
			}
			details = append(details, errorDetail{Message: err.Error()})
		}
		return newAPIError(status, defaultCodeForStatus(status), message, details)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, message string, errs ...error) huma.StatusError {
		return huma.NewError(status, message, errs...)
	}
}

// handleError maps engine and repo errors onto the wire envelope.
func handleError(err error) error {
	if err == nil {
		return nil
	}
	var statusErr huma.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	var vErr engine.ValidationError
	if errors.As(err, &vErr) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", vErr.Msg, nil)
	}
	var cErr engine.ConflictError
	if errors.As(err, &cErr) {
		return newAPIError(http.StatusConflict, "conflict", cErr.Msg, nil)
	}
	var fErr auth.ForbiddenError
	if errors.As(err, &fErr) {
		return newAPIError(http.StatusForbidden, "forbidden", fErr.Error(), []errorDetail{
			{Field: "permission", Message: fErr.Permission},
		})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", "resource not found", nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
}

// New builds the HTTP handler with all routes registered and starts the
// webhook dispatcher when hooks are configured.
func New(cfg Config) http.Handler {
	router := chi.NewMux()
	router.Use(newAuthMiddleware(apiBasePath, cfg.Auth, cfg.Engine.Repo))

	humaCfg := huma.DefaultConfig("Labdesk API", versionOr(cfg.Version))
	humaCfg.DocsPath = ""
	humaCfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		"apiKeyAuth": {Type: "apiKey", In: "header", Name: "X-Api-Key"},
	}
	humaCfg.Security = []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	api := humachi.New(router, humaCfg)

	registerHealth(api, versionOr(cfg.Version))
	registerClients(api, cfg.Engine)
	registerContacts(api, cfg.Engine)
	registerDepartments(api, cfg.Engine)
	registerPersonnel(api, cfg.Engine)
	registerProjects(api, cfg.Engine)
	registerRFIs(api, cfg.Engine)
	registerReceipts(api, cfg.Engine)
	registerQuotations(api, cfg.Engine)
	registerEvents(api, cfg.Engine)
	registerConfig(api, cfg.Engine)
	registerRoles(api, cfg.Engine)
	registerAPIKeys(api, cfg.Engine)
	registerMe(api, cfg.Engine)
	registerDocs(router)

	startWebhookDispatcher(cfg.Engine)
	return router
}

func versionOr(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}

type healthOutput struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}

func registerHealth(api huma.API, version string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/health",
		Summary:     "Health check",
		Security:    []map[string][]string{},
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		out := &healthOutput{}
		out.Body.Status = "ok"
		out.Body.Version = version
		return out, nil
	})
}

type clientOutput struct {
	Body domain.Client
}

type clientListOutput struct {
	Body struct {
		Clients []domain.Client `json:"clients"`
	}
}

func registerClients(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/clients",
		Summary:       "Register a client organization",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID      string `json:"id,omitempty"`
			Name    string `json:"name" minLength:"1"`
			Address string `json:"address,omitempty"`
			Email   string `json:"email,omitempty"`
			Phone   string `json:"phone,omitempty"`
		}
	}) (*clientOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		c, err := e.CreateClient(ctx, engine.ClientCreateOptions{
			ID:      input.Body.ID,
			Name:    input.Body.Name,
			Address: input.Body.Address,
			Email:   input.Body.Email,
			Phone:   input.Body.Phone,
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &clientOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"active,archived" required:"false"`
	}) (*clientListOutput, error) {
		clients, err := e.Repo.ListClients(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out := &clientListOutput{}
		out.Body.Clients = clients
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/clients/{clientId}",
		Summary:     "Get a client",
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"clientId"`
	}) (*clientOutput, error) {
		c, err := e.Repo.GetClient(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		return &clientOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-client",
		Method:      http.MethodPatch,
		Path:        apiBasePath + "/clients/{clientId}",
		Summary:     "Update client fields",
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"clientId"`
		Body     struct {
			Name    *string `json:"name,omitempty"`
			Address *string `json:"address,omitempty"`
			Email   *string `json:"email,omitempty"`
			Phone   *string `json:"phone,omitempty"`
			Status  *string `json:"status,omitempty" enum:"active,archived"`
		}
	}) (*clientOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		c, err := e.UpdateClient(ctx, input.ClientID, input.Body.Name, input.Body.Address, input.Body.Email, input.Body.Phone, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &clientOutput{Body: c}, nil
	})
}

type contactOutput struct {
	Body domain.ContactPerson
}

type contactListOutput struct {
	Body struct {
		Contacts []domain.ContactPerson `json:"contacts"`
	}
}

func registerContacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/clients/{clientId}/contacts",
		Summary:       "Add a contact person to a client",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"clientId"`
		Body     struct {
			ID    string `json:"id,omitempty"`
			Name  string `json:"name" minLength:"1"`
			Email string `json:"email,omitempty"`
			Phone string `json:"phone,omitempty"`
			Title string `json:"title,omitempty"`
		}
	}) (*contactOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		c, err := e.CreateContact(ctx, engine.ContactCreateOptions{
			ID:       input.Body.ID,
			ClientID: input.ClientID,
			Name:     input.Body.Name,
			Email:    input.Body.Email,
			Phone:    input.Body.Phone,
			Title:    input.Body.Title,
			ActorID:  actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &contactOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/clients/{clientId}/contacts",
		Summary:     "List a client's contact persons",
	}, func(ctx context.Context, input *struct {
		ClientID string `path:"clientId"`
	}) (*contactListOutput, error) {
		contacts, err := e.Repo.ListContacts(ctx, input.ClientID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &contactListOutput{}
		out.Body.Contacts = contacts
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contact",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/contacts/{contactId}",
		Summary:     "Get a contact person",
	}, func(ctx context.Context, input *struct {
		ContactID string `path:"contactId"`
	}) (*contactOutput, error) {
		c, err := e.Repo.GetContact(ctx, input.ContactID)
		if err != nil {
			return nil, handleError(err)
		}
		return &contactOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-contact",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/contacts/{contactId}",
		Summary:       "Delete a contact person",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ContactID string `path:"contactId"`
	}) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteContact(ctx, input.ContactID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type departmentOutput struct {
	Body domain.Department
}

type departmentListOutput struct {
	Body struct {
		Departments []domain.Department `json:"departments"`
	}
}

func registerDepartments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-department",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/departments",
		Summary:       "Create a lab department",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID        string `json:"id,omitempty"`
			Name      string `json:"name" minLength:"1"`
			ManagerID string `json:"manager_id,omitempty"`
		}
	}) (*departmentOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		d, err := e.CreateDepartment(ctx, engine.DepartmentCreateOptions{
			ID:        input.Body.ID,
			Name:      input.Body.Name,
			ManagerID: input.Body.ManagerID,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &departmentOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-departments",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/departments",
		Summary:     "List departments",
	}, func(ctx context.Context, _ *struct{}) (*departmentListOutput, error) {
		departments, err := e.Repo.ListDepartments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := &departmentListOutput{}
		out.Body.Departments = departments
		return out, nil
	})
}

type personnelOutput struct {
	Body domain.Personnel
}

type personnelListOutput struct {
	Body struct {
		Personnel []domain.Personnel `json:"personnel"`
	}
}

func registerPersonnel(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-personnel",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/personnel",
		Summary:       "Register lab personnel",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID           string `json:"id,omitempty"`
			Name         string `json:"name" minLength:"1"`
			Email        string `json:"email,omitempty"`
			DepartmentID string `json:"department_id,omitempty"`
			Role         string `json:"role,omitempty"`
		}
	}) (*personnelOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.CreatePersonnel(ctx, engine.PersonnelCreateOptions{
			ID:           input.Body.ID,
			Name:         input.Body.Name,
			Email:        input.Body.Email,
			DepartmentID: input.Body.DepartmentID,
			Role:         input.Body.Role,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &personnelOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-personnel",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/personnel",
		Summary:     "List personnel",
	}, func(ctx context.Context, input *struct {
		DepartmentID string `query:"department_id" required:"false"`
		Status       string `query:"status" enum:"active,inactive" required:"false"`
	}) (*personnelListOutput, error) {
		people, err := e.Repo.ListPersonnel(ctx, input.DepartmentID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out := &personnelListOutput{}
		out.Body.Personnel = people
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-personnel",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/personnel/{personnelId}",
		Summary:     "Get a personnel record",
	}, func(ctx context.Context, input *struct {
		PersonnelID string `path:"personnelId"`
	}) (*personnelOutput, error) {
		p, err := e.Repo.GetPersonnel(ctx, input.PersonnelID)
		if err != nil {
			return nil, handleError(err)
		}
		return &personnelOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-personnel-status",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/personnel/{personnelId}/status",
		Summary:     "Activate or deactivate personnel",
	}, func(ctx context.Context, input *struct {
		PersonnelID string `path:"personnelId"`
		Body        struct {
			Status string `json:"status" enum:"active,inactive"`
		}
	}) (*personnelOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.SetPersonnelStatus(ctx, input.PersonnelID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &personnelOutput{Body: p}, nil
	})
}

type projectOutput struct {
	Body domain.Project
}

type projectListOutput struct {
	Body struct {
		Projects []domain.Project `json:"projects"`
	}
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/projects",
		Summary:       "Create a project for a client",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID             string   `json:"id,omitempty"`
			ClientID       string   `json:"client_id" minLength:"1"`
			Name           string   `json:"name" minLength:"1"`
			Description    string   `json:"description,omitempty"`
			ContactPersons []string `json:"contact_persons,omitempty"`
		}
	}) (*projectOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			ID:             input.Body.ID,
			ClientID:       input.Body.ClientID,
			Name:           input.Body.Name,
			Description:    input.Body.Description,
			ContactPersons: input.Body.ContactPersons,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, input *struct {
		ClientID string `query:"client_id" required:"false"`
		Status   string `query:"status" enum:"active,completed,archived" required:"false"`
	}) (*projectListOutput, error) {
		projects, err := e.Repo.ListProjects(ctx, input.ClientID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out := &projectListOutput{}
		out.Body.Projects = projects
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/projects/{projectId}",
		Summary:     "Get a project",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"projectId"`
	}) (*projectOutput, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        apiBasePath + "/projects/{projectId}",
		Summary:     "Update project fields",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"projectId"`
		Body      struct {
			Name        *string `json:"name,omitempty"`
			Description *string `json:"description,omitempty"`
			Status      *string `json:"status,omitempty" enum:"active,completed,archived"`
		}
	}) (*projectOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.UpdateProject(ctx, input.ProjectID, input.Body.Name, input.Body.Description, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-project-contacts",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/projects/{projectId}/contacts",
		Summary:     "Replace the project's contact list",
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"projectId"`
		Body      struct {
			ContactPersons []string `json:"contact_persons"`
		}
	}) (*projectOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.SetProjectContacts(ctx, input.ProjectID, input.Body.ContactPersons, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})
}

type attachmentInput struct {
	FileName    string `json:"file_name" minLength:"1"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

func attachmentOpts(in []attachmentInput) []engine.AttachmentOptions {
	var out []engine.AttachmentOptions
	for _, a := range in {
		out = append(out, engine.AttachmentOptions{
			FileName:    a.FileName,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}
	return out
}

type rfiOutput struct {
	Body domain.RFI
}

type rfiListOutput struct {
	Body struct {
		RFIs []domain.RFI `json:"rfis"`
	}
}

type messageOutput struct {
	Body domain.ConversationMessage
}

func registerRFIs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-rfi",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/rfis",
		Summary:       "Open a request for information",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID              string            `json:"id,omitempty"`
			InitiationType  string            `json:"initiation_type" enum:"internal_internal,internal_external,external_internal"`
			Subject         string            `json:"subject" minLength:"1"`
			Description     string            `json:"description" minLength:"1"`
			ProjectID       string            `json:"project_id,omitempty"`
			ClientID        string            `json:"client_id,omitempty"`
			LabInitiator    string            `json:"lab_initiator,omitempty"`
			ClientInitiator string            `json:"client_initiator,omitempty"`
			LabReceivers    []string          `json:"lab_receivers,omitempty"`
			ClientReceivers []string          `json:"client_receivers,omitempty"`
			Attachments     []attachmentInput `json:"attachments,omitempty"`
		}
	}) (*rfiOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		rfi, err := e.CreateRFI(ctx, engine.RFICreateOptions{
			ID:              input.Body.ID,
			InitiationType:  input.Body.InitiationType,
			Subject:         input.Body.Subject,
			Description:     input.Body.Description,
			ProjectID:       input.Body.ProjectID,
			ClientID:        input.Body.ClientID,
			LabInitiator:    input.Body.LabInitiator,
			ClientInitiator: input.Body.ClientInitiator,
			LabReceivers:    input.Body.LabReceivers,
			ClientReceivers: input.Body.ClientReceivers,
			Attachments:     attachmentOpts(input.Body.Attachments),
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &rfiOutput{Body: rfi}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rfis",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/rfis",
		Summary:     "List RFIs",
	}, func(ctx context.Context, input *struct {
		ProjectID      string `query:"project_id" required:"false"`
		ClientID       string `query:"client_id" required:"false"`
		Status         string `query:"status" enum:"open,in_progress,resolved" required:"false"`
		InitiationType string `query:"initiation_type" enum:"internal_internal,internal_external,external_internal" required:"false"`
		Limit          int    `query:"limit" required:"false"`
	}) (*rfiListOutput, error) {
		rfis, err := e.Repo.ListRFIs(ctx, repo.RFIFilters{
			ProjectID:      input.ProjectID,
			ClientID:       input.ClientID,
			Status:         input.Status,
			InitiationType: input.InitiationType,
			Limit:          input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &rfiListOutput{}
		out.Body.RFIs = rfis
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-rfi",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/rfis/{rfiId}",
		Summary:     "Get an RFI with its conversation and history",
	}, func(ctx context.Context, input *struct {
		RFIID string `path:"rfiId"`
	}) (*rfiOutput, error) {
		rfi, err := e.Repo.GetRFI(ctx, input.RFIID)
		if err != nil {
			return nil, handleError(err)
		}
		return &rfiOutput{Body: rfi}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "append-rfi-message",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/rfis/{rfiId}/messages",
		Summary:       "Append a message to the RFI conversation",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		RFIID string `path:"rfiId"`
		Body  struct {
			Message      string            `json:"message,omitempty"`
			SentByClient bool              `json:"sent_by_client,omitempty"`
			SenderID     string            `json:"sender_id" minLength:"1"`
			Attachments  []attachmentInput `json:"attachments,omitempty"`
		}
	}) (*messageOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		msg, err := e.AppendMessage(ctx, engine.MessageOptions{
			RFIID:        input.RFIID,
			Message:      input.Body.Message,
			SentByClient: input.Body.SentByClient,
			SenderID:     input.Body.SenderID,
			Attachments:  attachmentOpts(input.Body.Attachments),
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &messageOutput{Body: msg}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-official-response",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/rfis/{rfiId}/messages/{messageKey}/official",
		Summary:     "Mark or unmark a message as the official response",
	}, func(ctx context.Context, input *struct {
		RFIID      string `path:"rfiId"`
		MessageKey string `path:"messageKey"`
		Body       struct {
			IsOfficial bool `json:"is_official"`
		}
	}) (*rfiOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		rfi, err := e.SetOfficialResponse(ctx, input.RFIID, input.MessageKey, input.Body.IsOfficial, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &rfiOutput{Body: rfi}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-rfi-status",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/rfis/{rfiId}/status",
		Summary:     "Update the RFI lifecycle status",
	}, func(ctx context.Context, input *struct {
		RFIID string `path:"rfiId"`
		Body  struct {
			Status             string `json:"status" enum:"open,in_progress,resolved"`
			Reason             string `json:"reason,omitempty"`
			ChangedBy          string `json:"changed_by" minLength:"1"`
			OfficialMessageKey string `json:"official_message_key,omitempty"`
		}
	}) (*rfiOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		rfi, err := e.UpdateStatus(ctx, engine.StatusUpdateOptions{
			RFIID:              input.RFIID,
			Status:             input.Body.Status,
			Reason:             input.Body.Reason,
			ChangedBy:          input.Body.ChangedBy,
			OfficialMessageKey: input.Body.OfficialMessageKey,
			ActorID:            actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &rfiOutput{Body: rfi}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-rfi",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/rfis/{rfiId}",
		Summary:       "Delete an RFI and its conversation",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		RFIID string `path:"rfiId"`
	}) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteRFI(ctx, input.RFIID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type receiptOutput struct {
	Body domain.SampleReceipt
}

type receiptListOutput struct {
	Body struct {
		Receipts []domain.SampleReceipt `json:"receipts"`
	}
}

type sampleInput struct {
	Description string `json:"description" minLength:"1"`
	Quantity    int    `json:"quantity,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

func registerReceipts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-receipt",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/receipts",
		Summary:       "Record a sample receipt",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID         string        `json:"id,omitempty"`
			ProjectID  string        `json:"project_id" minLength:"1"`
			ClientID   string        `json:"client_id" minLength:"1"`
			ReceivedBy string        `json:"received_by" minLength:"1"`
			Samples    []sampleInput `json:"samples,omitempty"`
		}
	}) (*receiptOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		var samples []engine.SampleOptions
		for _, s := range input.Body.Samples {
			samples = append(samples, engine.SampleOptions{
				Description: s.Description,
				Quantity:    s.Quantity,
				Condition:   s.Condition,
			})
		}
		rec, err := e.CreateReceipt(ctx, engine.ReceiptCreateOptions{
			ID:         input.Body.ID,
			ProjectID:  input.Body.ProjectID,
			ClientID:   input.Body.ClientID,
			ReceivedBy: input.Body.ReceivedBy,
			Samples:    samples,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &receiptOutput{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-receipts",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/receipts",
		Summary:     "List sample receipts",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id" required:"false"`
		ClientID  string `query:"client_id" required:"false"`
		Status    string `query:"status" required:"false"`
		Limit     int    `query:"limit" required:"false"`
	}) (*receiptListOutput, error) {
		receipts, err := e.Repo.ListReceipts(ctx, repo.ReceiptFilters{
			ProjectID: input.ProjectID,
			ClientID:  input.ClientID,
			Status:    input.Status,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &receiptListOutput{}
		out.Body.Receipts = receipts
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-receipt",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/receipts/{receiptId}",
		Summary:     "Get a sample receipt",
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receiptId"`
	}) (*receiptOutput, error) {
		rec, err := e.Repo.GetReceipt(ctx, input.ReceiptID)
		if err != nil {
			return nil, handleError(err)
		}
		return &receiptOutput{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-receipt-sample",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/receipts/{receiptId}/samples",
		Summary:       "Add a sample line to a receipt",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receiptId"`
		Body      sampleInput
	}) (*struct {
		Body domain.SampleLine
	}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		line, err := e.AddSample(ctx, input.ReceiptID, engine.SampleOptions{
			Description: input.Body.Description,
			Quantity:    input.Body.Quantity,
			Condition:   input.Body.Condition,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SampleLine
		}{Body: line}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-receipt-sample",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/receipts/{receiptId}/samples/{sampleId}",
		Summary:       "Remove a sample line from a receipt",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receiptId"`
		SampleID  string `path:"sampleId"`
	}) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.RemoveSample(ctx, input.ReceiptID, input.SampleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-receipt-status",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/receipts/{receiptId}/status",
		Summary:     "Advance a receipt through verification",
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receiptId"`
		Body      struct {
			Status    string `json:"status" enum:"draft,submitted,approved,rejected,sent_to_client,client_acknowledged"`
			Note      string `json:"note,omitempty"`
			DecidedBy string `json:"decided_by" minLength:"1"`
		}
	}) (*receiptOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		rec, err := e.UpdateReceiptStatus(ctx, engine.ReceiptStatusOptions{
			ReceiptID: input.ReceiptID,
			Status:    input.Body.Status,
			Note:      input.Body.Note,
			DecidedBy: input.Body.DecidedBy,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &receiptOutput{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-receipt",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/receipts/{receiptId}",
		Summary:       "Delete an editable receipt",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receiptId"`
	}) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteReceipt(ctx, input.ReceiptID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type quotationOutput struct {
	Body domain.Quotation
}

type quotationListOutput struct {
	Body struct {
		Quotations []domain.Quotation `json:"quotations"`
	}
}

type quotationItemInput struct {
	Description string  `json:"description" minLength:"1"`
	Quantity    float64 `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
}

func quotationItemOpts(in []quotationItemInput) []engine.QuotationItemOptions {
	var out []engine.QuotationItemOptions
	for _, it := range in {
		out = append(out, engine.QuotationItemOptions{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

func registerQuotations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-quotation",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/quotations",
		Summary:       "Draft a quotation",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ID        string               `json:"id,omitempty"`
			ProjectID string               `json:"project_id" minLength:"1"`
			ClientID  string               `json:"client_id" minLength:"1"`
			Items     []quotationItemInput `json:"items" minItems:"1"`
		}
	}) (*quotationOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		q, err := e.CreateQuotation(ctx, engine.QuotationCreateOptions{
			ID:        input.Body.ID,
			ProjectID: input.Body.ProjectID,
			ClientID:  input.Body.ClientID,
			Items:     quotationItemOpts(input.Body.Items),
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &quotationOutput{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-quotations",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/quotations",
		Summary:     "List quotations",
	}, func(ctx context.Context, input *struct {
		ProjectID string `query:"project_id" required:"false"`
		ClientID  string `query:"client_id" required:"false"`
		Status    string `query:"status" enum:"draft,issued,accepted,declined" required:"false"`
		Limit     int    `query:"limit" required:"false"`
	}) (*quotationListOutput, error) {
		quotes, err := e.Repo.ListQuotations(ctx, repo.QuotationFilters{
			ProjectID: input.ProjectID,
			ClientID:  input.ClientID,
			Status:    input.Status,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		out := &quotationListOutput{}
		out.Body.Quotations = quotes
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-quotation",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/quotations/{quotationId}",
		Summary:     "Get a quotation",
	}, func(ctx context.Context, input *struct {
		QuotationID string `path:"quotationId"`
	}) (*quotationOutput, error) {
		q, err := e.Repo.GetQuotation(ctx, input.QuotationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &quotationOutput{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-quotation-items",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/quotations/{quotationId}/items",
		Summary:     "Replace a draft quotation's line items",
	}, func(ctx context.Context, input *struct {
		QuotationID string `path:"quotationId"`
		Body        struct {
			Items []quotationItemInput `json:"items" minItems:"1"`
		}
	}) (*quotationOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		q, err := e.ReplaceQuotationItems(ctx, input.QuotationID, quotationItemOpts(input.Body.Items), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &quotationOutput{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-quotation-status",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/quotations/{quotationId}/status",
		Summary:     "Issue, accept or decline a quotation",
	}, func(ctx context.Context, input *struct {
		QuotationID string `path:"quotationId"`
		Body        struct {
			Status string `json:"status" enum:"issued,accepted,declined"`
		}
	}) (*quotationOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		q, err := e.SetQuotationStatus(ctx, input.QuotationID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &quotationOutput{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "revise-quotation",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/quotations/{quotationId}/revisions",
		Summary:       "Create a draft revision of a quotation",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		QuotationID string `path:"quotationId"`
	}) (*quotationOutput, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		q, err := e.ReviseQuotation(ctx, input.QuotationID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &quotationOutput{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-quotation",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/quotations/{quotationId}",
		Summary:       "Delete a draft quotation",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		QuotationID string `path:"quotationId"`
	}) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteQuotation(ctx, input.QuotationID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type eventListOutput struct {
	Body struct {
		Events []domain.Event `json:"events"`
	}
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/events",
		Summary:     "List audit events, newest first",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" required:"false"`
		After      int64  `query:"after" required:"false"`
		Type       string `query:"type" required:"false"`
		EntityKind string `query:"entity_kind" required:"false"`
		EntityID   string `query:"entity_id" required:"false"`
	}) (*eventListOutput, error) {
		events, err := e.Repo.LatestEventsFrom(ctx, input.Limit, input.After, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &eventListOutput{}
		out.Body.Events = events
		return out, nil
	})
}

type configOutput struct {
	Body struct {
		LabID             string  `json:"lab_id"`
		LabName           string  `json:"lab_name,omitempty"`
		Currency          string  `json:"currency"`
		TaxPercent        float64 `json:"tax_percent"`
		NumberPrefix      string  `json:"number_prefix"`
		RequireRejectNote bool    `json:"require_reject_note"`
		Roles             int     `json:"roles"`
		Webhooks          int     `json:"webhooks"`
	}
}

func registerConfig(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/config",
		Summary:     "Show the active lab configuration",
	}, func(ctx context.Context, _ *struct{}) (*configOutput, error) {
		if e.Config == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "no configuration loaded", nil)
		}
		out := &configOutput{}
		out.Body.LabID = e.Config.Lab.ID
		out.Body.LabName = e.Config.Lab.Name
		out.Body.Currency = e.Config.Billing.Currency
		out.Body.TaxPercent = e.Config.Billing.TaxPercent
		out.Body.NumberPrefix = e.Config.Billing.NumberPrefix
		out.Body.RequireRejectNote = e.Config.Receipts.RequireRejectNote
		out.Body.Roles = len(e.Config.RBAC.Roles)
		out.Body.Webhooks = len(e.Config.Webhooks)
		return out, nil
	})
}

type actorRolesOutput struct {
	Body struct {
		ActorID string   `json:"actor_id"`
		Roles   []string `json:"roles"`
	}
}

func registerRoles(api huma.API, e engine.Engine) {
	listRoles := func(ctx context.Context, actorID string) (*actorRolesOutput, error) {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		roles, err := e.Auth.ActorRoles(ctx, tx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &actorRolesOutput{}
		out.Body.ActorID = actorID
		out.Body.Roles = roles
		return out, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-actor-roles",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/actors/{actorId}/roles",
		Summary:     "List an actor's roles",
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actorId"`
	}) (*actorRolesOutput, error) {
		return listRoles(ctx, input.ActorID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-actor-role",
		Method:      http.MethodPut,
		Path:        apiBasePath + "/actors/{actorId}/roles/{roleId}",
		Summary:     "Assign a role to an actor",
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actorId"`
		RoleID  string `path:"roleId"`
	}) (*actorRolesOutput, error) {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := e.Auth.AssignRole(ctx, tx, input.ActorID, input.RoleID); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return listRoles(ctx, input.ActorID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-actor-role",
		Method:      http.MethodDelete,
		Path:        apiBasePath + "/actors/{actorId}/roles/{roleId}",
		Summary:     "Remove a role from an actor",
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actorId"`
		RoleID  string `path:"roleId"`
	}) (*actorRolesOutput, error) {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := e.Auth.UnassignRole(ctx, tx, input.ActorID, input.RoleID); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return listRoles(ctx, input.ActorID)
	})
}

type apiKeyCreatedOutput struct {
	Body struct {
		ID      string `json:"id"`
		ActorID string `json:"actor_id"`
		Name    string `json:"name,omitempty"`
		// Key is returned exactly once; only its hash is stored.
		Key string `json:"key"`
	}
}

type apiKeyListOutput struct {
	Body struct {
		Keys []domain.APIKey `json:"keys"`
	}
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          apiBasePath + "/apikeys",
		Summary:       "Issue an API key for an actor",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body struct {
			ActorID string `json:"actor_id" minLength:"1"`
			Name    string `json:"name,omitempty"`
		}
	}) (*apiKeyCreatedOutput, error) {
		plaintext := fmt.Sprintf("ldk_%s", uuid.New().String())
		key := domain.APIKey{
			ID:        uuid.New().String(),
			ActorID:   input.Body.ActorID,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(plaintext),
			CreatedAt: e.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
			return nil, handleError(err)
		}
		out := &apiKeyCreatedOutput{}
		out.Body.ID = key.ID
		out.Body.ActorID = key.ActorID
		out.Body.Name = key.Name
		out.Body.Key = plaintext
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/apikeys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id" required:"false"`
	}) (*apiKeyListOutput, error) {
		keys, err := e.Repo.ListAPIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &apiKeyListOutput{}
		out.Body.Keys = keys
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-api-key",
		Method:        http.MethodDelete,
		Path:          apiBasePath + "/apikeys/{keyId}",
		Summary:       "Revoke an API key",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"keyId"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

type meOutput struct {
	Body struct {
		ActorID     string   `json:"actor_id"`
		Source      string   `json:"source"`
		Roles       []string `json:"roles"`
		Permissions []string `json:"permissions"`
	}
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        apiBasePath + "/me",
		Summary:     "Describe the authenticated principal",
	}, func(ctx context.Context, _ *struct{}) (*meOutput, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		roles, err := e.Auth.ActorRoles(ctx, tx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		perms, err := e.Auth.ActorPermissions(ctx, tx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &meOutput{}
		out.Body.ActorID = p.ActorID
		out.Body.Source = p.Source
		out.Body.Roles = roles
		out.Body.Permissions = perms
		return out, nil
	})
}

func registerDocs(router chi.Router) {
	router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(swaggerHTML))
	})
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Labdesk API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      SwaggerUIBundle({
        url: "/openapi.json",
        dom_id: "#swagger-ui",
      });
    };
  </script>
</body>
</html>`

package handlers

import (
	"fmt"
	"strings"

	"showcase/internal/models"
	"showcase/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// SignupRequest is the body of POST /auth/signup. The avatar travels as a
// separate multipart file field.
type SignupRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ProjectRequest carries project fields. Absent fields are nil so an update
// can tell "not sent" from "sent empty".
type ProjectRequest struct {
	Name        *string `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
	URL         *string `json:"url" form:"url"`
}

// Input converts the request into the fields of a new project.
func (r ProjectRequest) Input() models.ProjectInput {
	return models.ProjectInput{
		Name:        deref(r.Name),
		Description: deref(r.Description),
		URL:         deref(r.URL),
	}
}

// Update converts the request into a partial project update.
func (r ProjectRequest) Update() models.ProjectUpdate {
	return models.ProjectUpdate{Name: r.Name, Description: r.Description, URL: r.URL}
}

// ProfileRequest is the body of PUT /users/:id.
type ProfileRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseBody decodes a JSON, urlencoded or multipart body into out. An empty
// body leaves out untouched.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func noop() {}

// formUpload opens the single file sent in a multipart field. It returns a
// nil upload when the request carries no file there. The returned release
// func closes the file and must be called once the upload was consumed.
func formUpload(c *fiber.Ctx, field string) (*storage.Upload, func(), error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, fmt.Errorf("invalid multipart form: %w", err)
	}
	files := form.File[field]
	switch {
	case len(files) == 0:
		return nil, noop, nil
	case len(files) > 1:
		return nil, noop, fmt.Errorf("only one file may be sent in %q", field)
	}

	fh := files[0]
	if fh.Filename == "" && fh.Size == 0 {
		// Browsers send an empty part for an untouched file input.
		return nil, noop, nil
	}
	file, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open uploaded file: %w", err)
	}
	upload := &storage.Upload{
		Reader:      file,
		Size:        fh.Size,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Filename:    fh.Filename,
	}
	return upload, func() { _ = file.Close() }, nil
}

package rest

import (
	"blurrer/api/model"
	"blurrer/config"
	"blurrer/service"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	"context"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"net/url"
	"strconv"
	"strings"
)

type BlurController struct {
	cfg     *config.Config
	service *service.BlurService
	logger  *zap.Logger
}

func NewBlurController(app *fiber.App, cfg *config.Config, service *service.BlurService, logger *zap.Logger) *BlurController {
	b := &BlurController{service: service, cfg: cfg, logger: logger}

	app.Post("/blur", b.Blur)
	app.Get("/healthz", b.Health)

	return b
}

// Blur image
//
//	@Summary		Gaussian-blur an image
//	@Description	With application/x-www-form-urlencoded the body is a base64 image and the response is a base64 PNG
//	@Description	blurred with a 45x45 kernel. With multipart/form-data the image is uploaded as a file together with
//	@Description	the kernel size, sigmas and output format, and the response is the raw encoded image.
//	@Tags			blur
//	@Accept			x-www-form-urlencoded,mpfd
//	@Produce		plain,png,jpeg,webp,bmp,tiff,gif
//	@Param			image			formData	file	false	"Image to blur (multipart)"
//	@Param			ksize_width		formData	int		false	"Kernel width, positive and odd (multipart)"
//	@Param			ksize_height	formData	int		false	"Kernel height, positive and odd (multipart)"
//	@Param			sigma_x			formData	number	false	"Horizontal sigma, 0 derives it from the kernel (multipart)"
//	@Param			sigma_y			formData	number	false	"Vertical sigma, defaults to 0 (multipart)"
//	@Param			format			formData	string	false	"Output format, defaults to .png (multipart)"
//	@Success		200				{file}		file	"Blurred image"
//	@Failure		400				{object}	model.ErrorResponse
//	@Failure		415				{object}	model.ErrorResponse
//	@Failure		500				{object}	model.ErrorResponse
//	@Router			/blur [post]
func (b *BlurController) Blur(c *fiber.Ctx) error {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		return b.blurMultipart(c)
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm), strings.HasPrefix(contentType, fiber.MIMETextPlain):
		return b.blurEncoded(c)
	default:
		return fiber.NewError(fiber.StatusUnsupportedMediaType,
			fmt.Sprintf("expected %s or %s, got %q", fiber.MIMEApplicationForm, fiber.MIMEMultipartForm, contentType))
	}
}

func (b *BlurController) blurEncoded(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), b.cfg.RequestTimeout)
	defer cancel()

	payload, err := encodedPayload(c.Body())
	if err != nil {
		return err
	}

	out, err := b.service.BlurEncoded(ctx, requestID(c), payload)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(out)
}

func (b *BlurController) blurMultipart(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), b.cfg.RequestTimeout)
	defer cancel()
	logger := log.WithRequestID(log.LoggerWithTrace(ctx, b.logger), requestID(c))

	req, err := parseUpload(c)
	if err != nil {
		logger.Debug("Invalid multipart form", zap.Error(err))
		return err
	}

	res, err := b.service.BlurUpload(ctx, requestID(c), *req)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, res.ContentType)
	if res.Width > 0 {
		c.Set("X-Image-Width", strconv.Itoa(res.Width))
		c.Set("X-Image-Height", strconv.Itoa(res.Height))
	}
	if res.Cached {
		c.Set("X-Cache", "HIT")
	}

	return c.Send(res.Body)
}

// Health
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	model.HealthResponse
//	@Router		/healthz [get]
func (b *BlurController) Health(c *fiber.Ctx) error {
	return c.JSON(model.HealthResponse{Status: "ok", Engine: b.service.EngineName()})
}

// encodedPayload accepts the raw base64 body or a single image=/data= form field.
func encodedPayload(body []byte) (string, error) {
	payload := strings.TrimSpace(string(body))

	for _, field := range []string{"image=", "data="} {
		if !strings.HasPrefix(payload, field) {
			continue
		}

		values, err := url.ParseQuery(payload)
		if err != nil {
			return "", apperrors.Wrap(apperrors.KindInput, "form", "the form body cannot be parsed", err)
		}
		// base64 has no spaces, so any space is an unescaped '+'
		return strings.ReplaceAll(values.Get(strings.TrimSuffix(field, "=")), " ", "+"), nil
	}

	return payload, nil
}

func parseUpload(c *fiber.Ctx) (*model.UploadRequest, error) {
	image, err := c.FormFile("image")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInput, "form", "the image file field is required", err)
	}

	req := &model.UploadRequest{Image: image}

	if req.KernelWidth, err = formInt(c, "ksize_width", "kernel_width"); err != nil {
		return nil, err
	}
	if req.KernelHeight, err = formInt(c, "ksize_height", "kernel_height"); err != nil {
		return nil, err
	}
	if req.SigmaX, err = formFloat(c, "sigma_x"); err != nil {
		return nil, err
	}

	if raw := c.FormValue("sigma_y"); raw != "" {
		sigmaY, err := formFloat(c, "sigma_y")
		if err != nil {
			return nil, err
		}
		req.SigmaY = &sigmaY
	}
	if raw := c.FormValue("format"); raw != "" {
		req.Format = &raw
	}

	return req, nil
}

func formInt(c *fiber.Ctx, names ...string) (int, error) {
	raw, name := firstFormValue(c, names...)
	if raw == "" {
		return 0, apperrors.New(apperrors.KindParams, "form", fmt.Sprintf("the %s field is required", names[0]))
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindParams, "form", fmt.Sprintf("%s must be an integer, got %q", name, raw), err)
	}
	return v, nil
}

func formFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return 0, apperrors.New(apperrors.KindParams, "form", fmt.Sprintf("the %s field is required", name))
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindParams, "form", fmt.Sprintf("%s must be a number, got %q", name, raw), err)
	}
	return v, nil
}

func firstFormValue(c *fiber.Ctx, names ...string) (string, string) {
	for _, name := range names {
		if v := strings.TrimSpace(c.FormValue(name)); v != "" {
			return v, name
		}
	}
	return "", names[0]
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

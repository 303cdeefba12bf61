package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"strings"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"go-lms/internal/autherr"
	"go-lms/internal/claims"
	"go-lms/internal/model"
	"go-lms/internal/session"
	"go-lms/pkg/apierror"
)

const (
	defaultThumbnailSize = 512
	defaultMaxUpload     = 10 << 20
)

type ContentStore interface {
	CreateCourse(ctx context.Context, user *model.User, course model.Course) (model.Course, error)
	UpdateCourse(ctx context.Context, user *model.User, courseID string, req model.UpdateCourseRequest) (model.Course, error)
	DeleteCourse(ctx context.Context, user *model.User, courseID string) error
	CreateModule(ctx context.Context, user *model.User, module model.Module) (model.Module, error)
	CreateLesson(ctx context.Context, user *model.User, lesson model.Lesson) (model.Lesson, error)
	SetCourseThumbnail(ctx context.Context, user *model.User, courseID string, url string) (model.Course, error)
}

type objectUploader interface {
	Upload(ctx context.Context, accessToken string, bucket string, objectPath string, contentType string, body io.Reader, upsert bool) error
	PublicURL(bucket string, objectPath string) string
}

type serviceTokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

type AdminOptions struct {
	ThumbnailBucket string
	ThumbnailSize   int
	MaxUploadSize   int64
}

// AdminService manages course content. Every operation re-checks admin claims.
type AdminService struct {
	store       ContentStore
	resolver    *claims.Resolver
	uploader    objectUploader
	tokens      serviceTokenProvider
	interceptor *autherr.Interceptor
	opts        AdminOptions
}

func NewAdminService(store ContentStore, resolver *claims.Resolver, uploader objectUploader, tokens serviceTokenProvider, interceptor *autherr.Interceptor, opts AdminOptions) *AdminService {
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = defaultThumbnailSize
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUpload
	}
	if strings.TrimSpace(opts.ThumbnailBucket) == "" {
		opts.ThumbnailBucket = "course-thumbnails"
	}
	return &AdminService{
		store:       store,
		resolver:    resolver,
		uploader:    uploader,
		tokens:      tokens,
		interceptor: interceptor,
		opts:        opts,
	}
}

func (s *AdminService) CreateCourse(ctx context.Context, user *model.User, req model.CreateCourseRequest) (model.Course, error) {
	return claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (model.Course, error) {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return model.Course{}, apierror.BadRequest("title is required", "")
		}
		difficulty := strings.ToLower(strings.TrimSpace(req.Difficulty))
		if difficulty == "" {
			difficulty = model.Difficulties[0]
		}
		if !model.IsDifficulty(difficulty) {
			return model.Course{}, apierror.BadRequest("unknown difficulty", difficulty)
		}

		course, err := s.store.CreateCourse(ctx, user, model.Course{
			ID:          uuid.NewString(),
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			Difficulty:  difficulty,
			Category:    strings.TrimSpace(req.Category),
			Published:   req.Published,
			Position:    req.Position,
		})
		if err != nil {
			return model.Course{}, fmt.Errorf("create course: %w", err)
		}
		slog.Info("course created", "course_id", course.ID, "by", user.ID)
		return course, nil
	})
}

func (s *AdminService) UpdateCourse(ctx context.Context, user *model.User, courseID string, req model.UpdateCourseRequest) (model.Course, error) {
	return claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (model.Course, error) {
		if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
			return model.Course{}, apierror.BadRequest("title must not be empty", "")
		}
		if req.Difficulty != nil {
			normalized := strings.ToLower(strings.TrimSpace(*req.Difficulty))
			if !model.IsDifficulty(normalized) {
				return model.Course{}, apierror.BadRequest("unknown difficulty", *req.Difficulty)
			}
			req.Difficulty = &normalized
		}

		course, err := s.store.UpdateCourse(ctx, user, courseID, req)
		if err != nil {
			return model.Course{}, fmt.Errorf("update course %s: %w", courseID, err)
		}
		return course, nil
	})
}

func (s *AdminService) DeleteCourse(ctx context.Context, user *model.User, courseID string) error {
	_, err := claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (struct{}, error) {
		if err := s.store.DeleteCourse(ctx, user, courseID); err != nil {
			return struct{}{}, fmt.Errorf("delete course %s: %w", courseID, err)
		}
		slog.Info("course deleted", "course_id", courseID, "by", user.ID)
		return struct{}{}, nil
	})
	return err
}

func (s *AdminService) CreateModule(ctx context.Context, user *model.User, courseID string, req model.CreateModuleRequest) (model.Module, error) {
	return claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (model.Module, error) {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return model.Module{}, apierror.BadRequest("title is required", "")
		}

		module, err := s.store.CreateModule(ctx, user, model.Module{
			ID:       uuid.NewString(),
			CourseID: courseID,
			Title:    title,
			Position: req.Position,
		})
		if err != nil {
			return model.Module{}, fmt.Errorf("create module: %w", err)
		}
		return module, nil
	})
}

func (s *AdminService) CreateLesson(ctx context.Context, user *model.User, moduleID string, req model.CreateLessonRequest) (model.Lesson, error) {
	return claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (model.Lesson, error) {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return model.Lesson{}, apierror.BadRequest("title is required", "")
		}
		if req.XPReward < 0 {
			return model.Lesson{}, apierror.BadRequest("xp_reward must not be negative", "")
		}

		lesson, err := s.store.CreateLesson(ctx, user, model.Lesson{
			ID:       uuid.NewString(),
			ModuleID: moduleID,
			Title:    title,
			Content:  req.Content,
			XPReward: req.XPReward,
			Position: req.Position,
		})
		if err != nil {
			return model.Lesson{}, fmt.Errorf("create lesson: %w", err)
		}
		return lesson, nil
	})
}

// UploadThumbnail scales the image to a JPEG thumbnail, stores it in the
// thumbnail bucket with the service session and records its public URL.
func (s *AdminService) UploadThumbnail(ctx context.Context, user *model.User, courseID string, body io.Reader) (model.Course, error) {
	return claims.WithAdminCheck(ctx, s.resolver, user, func(ctx context.Context) (model.Course, error) {
		payload, err := io.ReadAll(io.LimitReader(body, s.opts.MaxUploadSize+1))
		if err != nil {
			return model.Course{}, fmt.Errorf("read thumbnail: %w", err)
		}
		if int64(len(payload)) > s.opts.MaxUploadSize {
			return model.Course{}, apierror.PayloadTooLarge("thumbnail exceeds upload limit")
		}

		thumb, err := scaleThumbnail(bytes.NewReader(payload), s.opts.ThumbnailSize)
		if err != nil {
			return model.Course{}, err
		}

		objectPath := "courses/" + courseID + ".jpg"
		serviceCtx := session.AsService(ctx)
		err = autherr.SafeExec(serviceCtx, s.interceptor, "upload thumbnail", func(ctx context.Context) error {
			token, err := s.tokens.AccessToken(ctx)
			if err != nil {
				return err
			}
			return s.uploader.Upload(ctx, token, s.opts.ThumbnailBucket, objectPath, "image/jpeg", bytes.NewReader(thumb), true)
		})
		if err != nil {
			return model.Course{}, fmt.Errorf("upload thumbnail: %w", err)
		}

		course, err := s.store.SetCourseThumbnail(ctx, user, courseID, s.uploader.PublicURL(s.opts.ThumbnailBucket, objectPath))
		if err != nil {
			return model.Course{}, fmt.Errorf("save thumbnail url: %w", err)
		}
		return course, nil
	})
}

// scaleThumbnail decodes an image and scales it so its larger side is at most
// size pixels. Smaller images are re-encoded without upscaling.
func scaleThumbnail(r io.Reader, size int) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, apierror.UnsupportedMediaType("cannot decode image", err.Error())
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, apierror.UnsupportedMediaType("invalid image dimensions", "")
	}

	scale := float64(size) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

package server

import (
	"context"

	"github.com/meysam81/go-bus/gitlab"
	"go.uber.org/zap"
)

// LogListener writes every GitLab webhook delivery to the log.
type LogListener struct {
	gitlab.NopListener
	logger *zap.Logger
}

func NewLogListener(logger *zap.Logger) *LogListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogListener{logger: logger.Named("gitlab.hooks")}
}

func projectPath(p *gitlab.HookProject) string {
	if p == nil {
		return ""
	}
	return p.PathWithNamespace
}

func (l *LogListener) OnPush(_ context.Context, e *gitlab.PushEvent) error {
	l.logger.Info("push",
		zap.String("project", projectPath(e.Project)),
		zap.String("ref", e.Ref),
		zap.String("after", e.After),
		zap.String("user", e.UserUsername),
		zap.Int("commits", e.TotalCommitsCount))
	return nil
}

func (l *LogListener) OnTagPush(_ context.Context, e *gitlab.PushEvent) error {
	l.logger.Info("tag push",
		zap.String("project", projectPath(e.Project)),
		zap.String("ref", e.Ref),
		zap.String("user", e.UserUsername))
	return nil
}

func (l *LogListener) object(kind string, e *gitlab.ObjectEvent) {
	fields := []zap.Field{zap.String("project", projectPath(e.Project))}
	if e.User != nil {
		fields = append(fields, zap.String("user", e.User.Username))
	}
	if a := e.ObjectAttributes; a != nil {
		fields = append(fields,
			zap.Int64("iid", a.IID),
			zap.String("action", a.Action),
			zap.String("state", a.State),
			zap.String("status", a.Status))
	}
	l.logger.Info(kind, fields...)
}

func (l *LogListener) OnIssue(_ context.Context, e *gitlab.ObjectEvent) error {
	l.object("issue", e)
	return nil
}

func (l *LogListener) OnNote(_ context.Context, e *gitlab.ObjectEvent) error {
	l.object("note", e)
	return nil
}

func (l *LogListener) OnMergeRequest(_ context.Context, e *gitlab.ObjectEvent) error {
	l.object("merge request", e)
	return nil
}

func (l *LogListener) OnPipeline(_ context.Context, e *gitlab.ObjectEvent) error {
	l.object("pipeline", e)
	return nil
}

func (l *LogListener) OnJob(_ context.Context, e *gitlab.JobEvent) error {
	l.logger.Info("job",
		zap.String("project", e.ProjectName),
		zap.Int64("build_id", e.BuildID),
		zap.String("name", e.BuildName),
		zap.String("stage", e.BuildStage),
		zap.String("status", e.BuildStatus))
	return nil
}

func (l *LogListener) OnRelease(_ context.Context, e *gitlab.ReleaseEvent) error {
	l.logger.Info("release",
		zap.String("project", projectPath(e.Project)),
		zap.String("tag", e.Tag),
		zap.String("action", e.Action))
	return nil
}

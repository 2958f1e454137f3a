// Package card 外部读卡器
package card

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// ErrNotPresent 未读到卡片
var ErrNotPresent = apperrors.New(apperrors.ErrCardNotPresent)

// ID 卡片标识
type ID string

// Reader 读卡器
type Reader interface {
	ReadCard(ctx context.Context) (ID, error)
}

// ScriptConfig 读卡脚本参数
type ScriptConfig struct {
	Command    string
	Args       []string
	Dir        string // 工作目录，结果文件的相对路径基于该目录
	ResultFile string
	Timeout    time.Duration
}

// ScriptReader 执行外部读卡脚本，脚本把卡号写入结果文件
type ScriptReader struct {
	cfg    ScriptConfig
	logger *zap.Logger
}

// NewScriptReader 创建脚本读卡器
func NewScriptReader(cfg ScriptConfig, log *zap.Logger) *ScriptReader {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptReader{cfg: cfg, logger: log}
}

func (r *ScriptReader) resultPath() string {
	if filepath.IsAbs(r.cfg.ResultFile) || r.cfg.Dir == "" {
		return r.cfg.ResultFile
	}
	return filepath.Join(r.cfg.Dir, r.cfg.ResultFile)
}

// ReadCard 阻塞直到脚本退出或超时
func (r *ScriptReader) ReadCard(ctx context.Context) (ID, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	path := r.resultPath()
	// 清除上一次的结果，避免重复使用旧卡号
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", apperrors.Wrap(err, apperrors.ErrCardReader, "清除结果文件")
	}

	cmd := exec.CommandContext(ctx, r.cfg.Command, r.cfg.Args...)
	cmd.Dir = r.cfg.Dir
	cmd.WaitDelay = time.Second
	if out, err := cmd.CombinedOutput(); err != nil {
		r.logger.Warn("读卡脚本失败",
			zap.String("command", r.cfg.Command),
			zap.ByteString("output", out),
			zap.Error(err))
		return "", ErrNotPresent
	}

	f, err := os.Open(path)
	if err != nil {
		r.logger.Warn("无法打开读卡结果", zap.String("file", path), zap.Error(err))
		return "", ErrNotPresent
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return "", ErrNotPresent
	}
	id := strings.TrimSpace(sc.Text())
	if id == "" {
		return "", ErrNotPresent
	}
	r.logger.Info("读取到卡片", zap.String("card_id", id))
	return ID(id), nil
}

// Static 固定结果的读卡器，用于模拟后端
type Static struct {
	ID  ID
	Err error
}

func (s *Static) ReadCard(ctx context.Context) (ID, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.ID == "" {
		return "", ErrNotPresent
	}
	return s.ID, nil
}

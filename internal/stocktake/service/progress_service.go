package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/archive"
	"github.com/leafdepot/stocktake/internal/stocktake/entity"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

var (
	// ErrNoSession 盘点会话未加载
	ErrNoSession = errors.New("盘点会话未加载")
	// ErrRowNotFound 会话中不存在该行
	ErrRowNotFound = errors.New("盘点行不存在")
	// ErrNotDispatched 任务尚未下发
	ErrNotDispatched = errors.New("请先下发盘点任务")
	// ErrDispatchInProgress 下发正在进行
	ErrDispatchInProgress = errors.New("任务下发进行中")
	// ErrNotAllCounted 仍有储位未录入实际数量
	ErrNotAllCounted = errors.New("请先完成所有储位的盘点录入")
	// ErrNoCountedRows 没有可上报的盘点数据
	ErrNoCountedRows = errors.New("请先完成盘点数据录入")
	// ErrStaleCompute 计算结果已被同行的后续请求取代
	ErrStaleCompute = errors.New("计算请求已过期")
)

// ProgressService 盘点执行会话。持有从任务清单加载的行集合，
// 驱动下发、逐储位计算、识别结果合并、人工修正、保存与上报。
// 单操作员模型，互斥锁保护整个会话
type ProgressService struct {
	gw         gateway.InventoryGateway
	manifests  *store.ManifestStore
	oplog      *store.OperationLogStore
	recognizer Recognizer
	archive    *archive.PhotoArchive
	logger     *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	taskNo     string
	items      []entity.InventoryItem
	rowIndex   map[string]int // rowID → 下标
	joinIndex  map[string]int // taskNo+binLocation → 下标
	results    map[string]entity.RecognitionResult
	autoFilled map[string]bool   // rowID → 有识别回填值
	rowSeq     map[string]uint64 // rowID → 计算请求序号
	state      entity.DispatchState
	startedAt  time.Time
	completed  bool
	frozen     *entity.Statistics
}

// NewProgressService 创建盘点执行服务
func NewProgressService(
	gw gateway.InventoryGateway,
	manifests *store.ManifestStore,
	oplog *store.OperationLogStore,
	recognizer Recognizer,
	arch *archive.PhotoArchive,
	logger *zap.Logger,
) *ProgressService {
	return &ProgressService{
		gw:         gw,
		manifests:  manifests,
		oplog:      oplog,
		recognizer: recognizer,
		archive:    arch,
		logger:     logger,
		now:        time.Now,
		state:      entity.DispatchNotStarted,
	}
}

// SessionSnapshot 会话状态快照
type SessionSnapshot struct {
	TaskNo     string                 `json:"taskNo"`
	Items      []entity.InventoryItem `json:"items"`
	Progress   int                    `json:"progress"`
	Completed  bool                   `json:"completed"`
	State      entity.DispatchState   `json:"dispatchState"`
	StartedAt  time.Time              `json:"startedAt"`
	Statistics *entity.Statistics     `json:"statistics,omitempty"`
}

// DispatchResult 下发结果
type DispatchResult struct {
	State          entity.DispatchState `json:"state"`
	AlreadyRunning bool                 `json:"alreadyRunning"`
	Message        string               `json:"message"`
}

// ArtifactStatus 单张验证图片的获取结果
type ArtifactStatus struct {
	Name    string `json:"name"`
	Fetched bool   `json:"fetched"`
}

// ComputeResult 单储位计算结果
type ComputeResult struct {
	Item      entity.InventoryItem `json:"item"`
	Photos    []string             `json:"photos"`
	Artifacts []ArtifactStatus     `json:"artifacts"`
}

// IngestOutcome 识别结果合并结论
type IngestOutcome struct {
	Applied bool                  `json:"applied"`
	Matched bool                  `json:"matched"`
	Reason  string                `json:"reason,omitempty"`
	Item    *entity.InventoryItem `json:"item,omitempty"`
}

// EditOutcome 人工修正结论。Conflict为真时未做任何修改，
// 调用方携带confirm重试以覆盖识别值
type EditOutcome struct {
	Conflict  bool                  `json:"conflict"`
	AutoValue int                   `json:"autoValue,omitempty"`
	Item      *entity.InventoryItem `json:"item,omitempty"`
}

// SaveResult 保存结果
type SaveResult struct {
	TaskNo         string  `json:"taskNo"`
	CompletedCount int     `json:"completedCount"`
	AbnormalCount  int     `json:"abnormalCount"`
	AccuracyRate   float64 `json:"accuracyRate"`
}

// UploadResult 上报结果
type UploadResult struct {
	Count int `json:"count"`
}

// LoadManifest 从清单槽加载盘点会话。槽位为空返回store.ErrNoManifest。
// 每次加载重建整张行集合并重置会话状态
func (s *ProgressService) LoadManifest(ctx context.Context) (*SessionSnapshot, error) {
	m, err := s.manifests.CurrentManifest(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.taskNo = m.TaskNo
	s.items = make([]entity.InventoryItem, 0, len(m.Tasks))
	s.rowIndex = make(map[string]int, len(m.Tasks))
	s.joinIndex = make(map[string]int, len(m.Tasks))
	s.results = make(map[string]entity.RecognitionResult)
	s.autoFilled = make(map[string]bool)
	s.rowSeq = make(map[string]uint64)
	s.state = entity.DispatchNotStarted
	s.startedAt = s.now()
	s.completed = false
	s.frozen = nil

	for i, t := range m.Tasks {
		rowID := fmt.Sprintf("INV%03d", i+1)
		taskNo := t.TaskID
		if taskNo == "" {
			taskNo = m.TaskNo
		}
		item := entity.InventoryItem{
			RowID:          rowID,
			BackendTaskID:  m.TaskNo,
			TaskNo:         taskNo,
			LocationCode:   t.BinCode,
			LocationName:   t.BinDesc,
			ProductCode:    t.ProductCode,
			ProductName:    t.ProductName,
			Unit:           "件",
			SystemQuantity: t.ProductQty,
			WhCode:         t.WhCode,
			AreaCode:       t.AreaCode,
			AreaName:       t.AreaName,
			BinStatus:      t.BinStatus,
			RcsCode:        t.RcsCode,
		}
		s.items = append(s.items, item)
		s.rowIndex[rowID] = i
		s.joinIndex[joinKey(taskNo, t.BinDesc)] = i
	}

	s.logger.Info("盘点会话已加载",
		zap.String("task_no", m.TaskNo),
		zap.Int("rows", len(s.items)))

	snap := s.snapshotLocked()
	return &snap, nil
}

// Dispatch 下发盘点任务，下发时刻记为盘点计时起点。
// 乐观策略：网关返回“任务已在执行中”视为成功；
// 失败保留已有数据并可重试
func (s *ProgressService) Dispatch(ctx context.Context) (*DispatchResult, error) {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	switch s.state {
	case entity.DispatchStarted:
		s.mu.Unlock()
		return &DispatchResult{State: entity.DispatchStarted, AlreadyRunning: true, Message: "任务已在执行中"}, nil
	case entity.DispatchDispatching:
		s.mu.Unlock()
		return nil, ErrDispatchInProgress
	}
	s.state = entity.DispatchDispatching
	s.startedAt = s.now()
	taskNo := s.items[0].BackendTaskID
	binLocations := make([]string, 0, len(s.items))
	tobaccoCodes := make([]string, 0, len(s.items))
	rcsCodes := make([]string, 0, len(s.items))
	for _, it := range s.items {
		binLocations = append(binLocations, it.LocationName)
		tobaccoCodes = append(tobaccoCodes, it.ProductCode)
		rcsCodes = append(rcsCodes, it.RcsCode)
	}
	s.mu.Unlock()

	res, err := s.gw.StartInventory(ctx, taskNo, binLocations, tobaccoCodes, rcsCodes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = entity.DispatchFailed
		return nil, fmt.Errorf("下发盘点任务失败: %w", err)
	}
	s.state = entity.DispatchStarted

	// 清单状态推进为进行中，失败不阻断
	if m, mErr := s.manifests.CurrentManifest(ctx); mErr == nil && m.TaskNo == s.taskNo {
		m.Status = entity.ManifestStatusInProgress
		if saveErr := s.manifests.SaveManifest(ctx, m); saveErr != nil {
			s.logger.Warn("更新清单状态失败", zap.Error(saveErr))
		}
	}

	return &DispatchResult{
		State:          entity.DispatchStarted,
		AlreadyRunning: res.AlreadyRunning,
		Message:        res.Message,
	}, nil
}

// Compute 对单行执行扫码识别与图片获取，回填实际数量。
// 同行并发请求按序号取舍，旧请求的完成结果被丢弃
func (s *ProgressService) Compute(ctx context.Context, rowID string) (*ComputeResult, error) {
	s.mu.Lock()
	idx, ok := s.rowIndex[rowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrRowNotFound
	}
	if s.state == entity.DispatchNotStarted {
		s.mu.Unlock()
		return nil, ErrNotDispatched
	}
	seq := s.rowSeq[rowID] + 1
	s.rowSeq[rowID] = seq
	item := s.items[idx]
	s.mu.Unlock()

	// 网关按主任务号定位，不认带行号后缀的子任务号
	scan, err := s.gw.ScanAndRecognize(ctx, item.BackendTaskID, item.LocationName)
	if err != nil {
		return nil, fmt.Errorf("扫码识别失败: %w", err)
	}

	qty, err := s.recognizer.Resolve(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("识别数量失败: %w", err)
	}

	// 两张验证图片允许部分失败，逐张报告
	artifacts := s.fetchArtifacts(ctx, item, scan.Photos)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rowSeq[rowID] != seq {
		return nil, ErrStaleCompute
	}
	idx, ok = s.rowIndex[rowID]
	if !ok {
		return nil, ErrRowNotFound
	}
	s.items[idx].ActualQuantity = &qty
	s.items[idx].Source = entity.SourceComputed
	s.recomputeLocked()

	return &ComputeResult{
		Item:      s.items[idx],
		Photos:    scan.Photos,
		Artifacts: artifacts,
	}, nil
}

// fetchArtifacts 拉取原图与后处理图并归档。单张失败不中断
func (s *ProgressService) fetchArtifacts(ctx context.Context, item entity.InventoryItem, photos []string) []ArtifactStatus {
	var artifacts []ArtifactStatus
	for _, p := range photos {
		cameraType, filename, ok := ParsePhotoPath(p)
		if !ok {
			s.logger.Warn("照片路径格式异常", zap.String("path", p))
			continue
		}
		for _, source := range []string{gateway.ImageSourceCapture, gateway.ImageSourceOutput} {
			name := fmt.Sprintf("%s/%s (%s)", cameraType, filename, source)
			q := gateway.ImageQuery{
				TaskNo:      item.BackendTaskID,
				BinLocation: item.LocationName,
				CameraType:  cameraType,
				Filename:    filename,
				Source:      source,
			}
			var img *gateway.ImageData
			err := Poll(ctx, 500*time.Millisecond, 3*time.Second, func(ctx context.Context) (bool, error) {
				data, fetchErr := s.gw.InventoryImage(ctx, q)
				if fetchErr != nil {
					if errors.Is(fetchErr, gateway.ErrNotFound) {
						// 图片尚未落盘，继续等
						return false, nil
					}
					return false, fetchErr
				}
				img = data
				return true, nil
			})
			if err != nil {
				s.logger.Warn("获取验证图片失败",
					zap.String("row", item.RowID),
					zap.String("artifact", name),
					zap.Error(err))
				artifacts = append(artifacts, ArtifactStatus{Name: name, Fetched: false})
				continue
			}
			s.archive.Store(ctx, item.TaskNo, item.LocationName,
				fmt.Sprintf("%s_%s_%s.jpg", source, cameraType, filename), img.Data, img.ContentType)
			artifacts = append(artifacts, ArtifactStatus{Name: name, Fetched: true})
		}
	}
	return artifacts
}

// Image 获取单行的验证图片代理
func (s *ProgressService) Image(ctx context.Context, rowID string, q gateway.ImageQuery) (*gateway.ImageData, error) {
	s.mu.Lock()
	idx, ok := s.rowIndex[rowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrRowNotFound
	}
	item := s.items[idx]
	s.mu.Unlock()

	q.TaskNo = item.BackendTaskID
	q.BinLocation = item.LocationName
	return s.gw.InventoryImage(ctx, q)
}

// Ingest 合并网关上报的识别结果。以(taskNo, binLocation)关联，
// 同键后到覆盖先到；success为假时不做任何修改
func (s *ProgressService) Ingest(ctx context.Context, res entity.RecognitionResult) (*IngestOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !res.Success {
		s.logger.Warn("识别失败上报",
			zap.String("task_no", res.TaskNo),
			zap.String("bin", res.BinLocation),
			zap.String("message", res.Message))
		return &IngestOutcome{Applied: false, Reason: res.Message}, nil
	}

	s.results[res.Key()] = res

	idx, ok := s.joinIndex[joinKey(res.TaskNo, res.BinLocation)]
	if !ok {
		return &IngestOutcome{Applied: false, Matched: false}, nil
	}

	item := &s.items[idx]
	if qty, valid := res.Number.Int(); valid {
		item.ActualQuantity = &qty
		item.Source = entity.SourceRecognition
		s.autoFilled[item.RowID] = true
	}
	if text := strings.TrimSpace(res.Text); text != "" {
		item.ProductName = text
	}
	s.recomputeLocked()

	cp := *item
	return &IngestOutcome{Applied: true, Matched: true, Item: &cp}, nil
}

// SetQuantity 人工修正实际数量。该行已有识别回填值且未确认时
// 返回冲突结论，不做修改；qty为nil表示清除
func (s *ProgressService) SetQuantity(ctx context.Context, rowID string, qty *int, confirm bool) (*EditOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.rowIndex[rowID]
	if !ok {
		return nil, ErrRowNotFound
	}
	item := &s.items[idx]

	if s.autoFilled[rowID] && item.ActualQuantity != nil && !confirm {
		return &EditOutcome{Conflict: true, AutoValue: *item.ActualQuantity}, nil
	}

	item.ActualQuantity = qty
	if qty != nil {
		item.Source = entity.SourceManual
	} else {
		item.Source = ""
	}
	delete(s.autoFilled, rowID)
	s.recomputeLocked()

	cp := *item
	return &EditOutcome{Item: &cp}, nil
}

// Snapshot 当前会话快照
func (s *ProgressService) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Statistics 统计数据。已完成时返回完成时刻的冻结快照，
// 否则返回实时预览
func (s *ProgressService) Statistics() entity.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen != nil {
		return *s.frozen
	}
	return s.statsLocked(s.now())
}

// Save 保存盘点结果。所有行都有实际数量才允许保存，
// 成功后写入操作日志
func (s *ProgressService) Save(ctx context.Context, userID, userName, ip string) (*SaveResult, error) {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	remaining := 0
	for _, it := range s.items {
		if it.ActualQuantity == nil {
			remaining++
		}
	}
	if remaining > 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w（剩余%d个储位）", ErrNotAllCounted, remaining)
	}

	var stats entity.Statistics
	if s.frozen != nil {
		stats = *s.frozen
	} else {
		stats = s.statsLocked(s.now())
	}
	taskNo := s.taskNo

	// 清单状态推进为已完成，失败不阻断
	if m, err := s.manifests.CurrentManifest(ctx); err == nil && m.TaskNo == taskNo {
		m.Status = entity.ManifestStatusCompleted
		if saveErr := s.manifests.SaveManifest(ctx, m); saveErr != nil {
			s.logger.Warn("更新清单状态失败", zap.Error(saveErr))
		}
	}
	s.mu.Unlock()

	s.oplog.Append(ctx, entity.OperationLogEntry{
		OperationType: entity.OpTypeInventory,
		UserID:        userID,
		UserName:      userName,
		Action:        "完成盘点任务",
		Target:        taskNo,
		Status:        entity.OpStatusSuccess,
		IPAddress:     ip,
		Details: map[string]interface{}{
			"task_no":         taskNo,
			"completed_count": stats.CompletedCount,
			"abnormal_count":  len(stats.AbnormalItems),
			"accuracy":        stats.AccuracyRate,
			"total_time_ms":   stats.TotalTimeMillis,
		},
	})

	return &SaveResult{
		TaskNo:         taskNo,
		CompletedCount: stats.CompletedCount,
		AbnormalCount:  len(stats.AbnormalItems),
		AccuracyRate:   stats.AccuracyRate,
	}, nil
}

// Upload 上报已盘点行到LMS。与保存互相独立，上报失败
// 不回滚本地结果。品规编码缺失时用行号推导条目id
func (s *ProgressService) Upload(ctx context.Context, authToken string) (*UploadResult, error) {
	s.mu.Lock()
	results := make([]gateway.TaskResult, 0, len(s.items))
	for _, it := range s.items {
		if it.ActualQuantity == nil {
			continue
		}
		itemID := it.ProductCode
		if itemID == "" {
			itemID = strings.Replace(it.RowID, "INV", "ITEM", 1)
		}
		results = append(results, gateway.TaskResult{
			TaskDetailID: it.RowID,
			ItemID:       itemID,
			CountQty:     *it.ActualQuantity,
		})
	}
	s.mu.Unlock()

	if len(results) == 0 {
		return nil, ErrNoCountedRows
	}

	if err := s.gw.SetTaskResults(ctx, authToken, results); err != nil {
		return nil, fmt.Errorf("上报盘点结果失败: %w", err)
	}
	return &UploadResult{Count: len(results)}, nil
}

// snapshotLocked 调用方持锁
func (s *ProgressService) snapshotLocked() SessionSnapshot {
	items := make([]entity.InventoryItem, len(s.items))
	copy(items, s.items)
	snap := SessionSnapshot{
		TaskNo:    s.taskNo,
		Items:     items,
		Progress:  s.progressLocked(),
		Completed: s.completed,
		State:     s.state,
		StartedAt: s.startedAt,
	}
	if s.frozen != nil {
		stats := *s.frozen
		snap.Statistics = &stats
	}
	return snap
}

// progressLocked 进度百分比，四舍五入并夹到[0,100]
func (s *ProgressService) progressLocked() int {
	if len(s.items) == 0 {
		return 0
	}
	counted := 0
	for _, it := range s.items {
		if it.ActualQuantity != nil {
			counted++
		}
	}
	p := int(math.Round(100 * float64(counted) / float64(len(s.items))))
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}

// recomputeLocked 进度与完成态的电平触发重算。
// 完成上升沿冻结统计，回落解除冻结
func (s *ProgressService) recomputeLocked() {
	counted := 0
	for _, it := range s.items {
		if it.ActualQuantity != nil {
			counted++
		}
	}
	completedNow := len(s.items) > 0 && counted == len(s.items)
	if completedNow && !s.completed {
		stats := s.statsLocked(s.now())
		s.frozen = &stats
	}
	if !completedNow {
		s.frozen = nil
	}
	s.completed = completedNow
}

// statsLocked 以at为截止时刻计算统计。调用方持锁。
// 零完成数时准确率按100处理
func (s *ProgressService) statsLocked(at time.Time) entity.Statistics {
	completed := 0
	var abnormal []entity.AbnormalItem
	for _, it := range s.items {
		if it.ActualQuantity == nil {
			continue
		}
		completed++
		if *it.ActualQuantity != it.SystemQuantity {
			abnormal = append(abnormal, entity.AbnormalItem{
				TaskNo:   it.TaskNo,
				Location: it.LocationName,
				Expected: it.SystemQuantity,
				Actual:   *it.ActualQuantity,
			})
		}
	}

	accuracy := 100.0
	if completed > 0 {
		accuracy = math.Round(100*float64(completed-len(abnormal))/float64(completed)*10) / 10
	}

	return entity.Statistics{
		TotalTimeMillis: at.Sub(s.startedAt).Milliseconds(),
		CompletedCount:  completed,
		AbnormalItems:   abnormal,
		AccuracyRate:    accuracy,
	}
}

func joinKey(taskNo, binLocation string) string {
	return taskNo + "\x00" + binLocation
}

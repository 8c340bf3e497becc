package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 任务重复下发时网关返回的提示语
const msgAlreadyRunning = "任务已在执行中"

// Client 识别网关HTTP客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建网关客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// doRequest 执行网关API请求
// method: HTTP方法
// path: API路径（可含query）
// headers: 附加请求头（authToken等），nil则不加
// body: 请求体（JSON序列化，nil则不发送）
// result: 响应结构体指针（JSON反序列化），nil则丢弃响应体
func (c *Client) doRequest(ctx context.Context, method, path string, headers map[string]string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求网关失败: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("网关错误[%d]: %s", resp.StatusCode, truncate(respBytes, 256))
	}

	if result != nil {
		if err := json.Unmarshal(respBytes, result); err != nil {
			return fmt.Errorf("解析网关响应失败: %w", err)
		}
	}
	return nil
}

// fetchBinary 获取二进制资源（图片）
func (c *Client) fetchBinary(ctx context.Context, path string) (*ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("网关错误[%d]: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取图片数据失败: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &ImageData{Data: data, ContentType: contentType}, nil
}

// ListBins 拉取LMS储位清单
func (c *Client) ListBins(ctx context.Context, authToken string) ([]BinRecord, error) {
	var result struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    []BinRecord `json:"data"`
	}
	path := "/lms/getLmsBin?authToken=" + url.QueryEscape(authToken)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// StartInventory 下发盘点任务，四个数组按行一一对应。
// 网关对重复下发返回“任务已在执行中”，视为成功；
// 其余非200业务码视为下发失败
func (c *Client) StartInventory(ctx context.Context, taskNo string, binLocations, tobaccoCodes, rcsCodes []string) (*StartResult, error) {
	body := map[string]interface{}{
		"taskNo":       taskNo,
		"binLocations": binLocations,
		"tobaccoCode":  tobaccoCodes,
		"rcsCode":      rcsCodes,
	}
	var result StartResult
	if err := c.doRequest(ctx, http.MethodPost, "/api/inventory/start-inventory", nil, body, &result); err != nil {
		return nil, err
	}
	result.AlreadyRunning = strings.Contains(result.Message, msgAlreadyRunning)
	if !result.AlreadyRunning && result.Code != 200 {
		return nil, fmt.Errorf("下发盘点任务被网关拒绝[%d]: %s", result.Code, result.Message)
	}
	return &result, nil
}

// ScanAndRecognize 触发单储位扫码识别，返回照片路径
// 网关历史上有两种响应形态，这里两种都兼容
func (c *Client) ScanAndRecognize(ctx context.Context, taskNo, binLocation string) (*ScanResult, error) {
	body := map[string]interface{}{
		"taskNo":      taskNo,
		"binLocation": binLocation,
		"pile_id":     1,
		"code_type":   "ucc128",
	}
	var raw struct {
		TaskNo      string   `json:"taskNo"`
		BinLocation string   `json:"binLocation"`
		Photos      []string `json:"photos"`
		Data        *struct {
			Photos []string `json:"photos"`
		} `json:"data"`
		Photo1Path string `json:"photo1_path"`
		Photo2Path string `json:"photo2_path"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/inventory/scan-and-recognize", nil, body, &raw); err != nil {
		return nil, err
	}

	photos := raw.Photos
	if len(photos) == 0 && raw.Data != nil {
		photos = raw.Data.Photos
	}
	if len(photos) == 0 {
		for _, p := range []string{raw.Photo1Path, raw.Photo2Path} {
			if p != "" {
				photos = append(photos, p)
			}
		}
	}
	return &ScanResult{TaskNo: taskNo, BinLocation: binLocation, Photos: photos}, nil
}

// InventoryImage 获取盘点任务图片
func (c *Client) InventoryImage(ctx context.Context, q ImageQuery) (*ImageData, error) {
	return c.fetchBinary(ctx, "/api/inventory/image?"+imageQueryValues(q).Encode())
}

// HistoryTasks 获取历史任务列表
func (c *Client) HistoryTasks(ctx context.Context) ([]HistoryTaskRecord, error) {
	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Tasks []HistoryTaskRecord `json:"tasks"`
			Total int                 `json:"total"`
		} `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/history/tasks", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Data.Tasks, nil
}

// HistoryTaskDetails 获取单个历史任务的明细行
func (c *Client) HistoryTaskDetails(ctx context.Context, taskID string) ([]DetailRecord, error) {
	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Details []DetailRecord `json:"details"`
		} `json:"data"`
	}
	path := "/api/history/task/" + url.PathEscape(taskID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Data.Details, nil
}

// HistoryImage 获取历史任务图片
func (c *Client) HistoryImage(ctx context.Context, q ImageQuery) (*ImageData, error) {
	return c.fetchBinary(ctx, "/api/history/image?"+imageQueryValues(q).Encode())
}

// CleanupHistory 清理历史数据。cutoffDate为空时网关按days计算
func (c *Client) CleanupHistory(ctx context.Context, cutoffDate string, days int) (*CleanupResult, error) {
	body := map[string]interface{}{
		"days": days,
	}
	if cutoffDate != "" {
		body["cutoff_date"] = cutoffDate
	}
	var result struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Data    CleanupResult `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/history/cleanup", nil, body, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// SetTaskResults 上报盘点结果到LMS
func (c *Client) SetTaskResults(ctx context.Context, authToken string, results []TaskResult) error {
	headers := map[string]string{"authToken": authToken}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/lms/setTaskResults", headers, results, &result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("LMS提交盘点结果失败: %s", result.Message)
	}
	return nil
}

func imageQueryValues(q ImageQuery) url.Values {
	v := url.Values{}
	v.Set("taskNo", q.TaskNo)
	v.Set("binLocation", q.BinLocation)
	v.Set("cameraType", q.CameraType)
	v.Set("filename", q.Filename)
	if q.Source != "" {
		v.Set("source", q.Source)
	}
	return v
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

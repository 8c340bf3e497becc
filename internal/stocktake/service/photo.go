package service

import (
	"net/url"
	"strings"
)

// ParsePhotoPath 解析网关照片路径，形如
// /taskNo/binLocation/3d_camera/MAIN.jpg
// 取末尾两段：相机类型转小写，文件名去扩展名。
// 不足两段视为畸形路径
func ParsePhotoPath(path string) (cameraType, filename string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	cameraType = strings.ToLower(parts[len(parts)-2])
	filename = parts[len(parts)-1]
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		filename = filename[:idx]
	}
	if cameraType == "" || filename == "" {
		return "", "", false
	}
	return cameraType, filename, true
}

// BuildHistoryImageURL 由照片路径构造历史图片代理地址，
// 畸形路径返回空串
func BuildHistoryImageURL(taskNo, binLocation, photoPath string) string {
	cameraType, filename, ok := ParsePhotoPath(photoPath)
	if !ok {
		return ""
	}
	v := url.Values{}
	v.Set("taskNo", taskNo)
	v.Set("binLocation", binLocation)
	v.Set("cameraType", cameraType)
	v.Set("filename", filename)
	return "/api/v1/history/image?" + v.Encode()
}

package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"

	"go.uber.org/mock/gomock"
	"liyu1981.xyz/envctl-daemon/pkg/db"
	"liyu1981.xyz/envctl-daemon/pkg/iot/mocks"
)

func GetMockIOTWithMemorySqliteDialector(t *testing.T, useMockIStatus, useMockIReading, useMockIAlertLog bool) (
	*gomock.Controller,
	*IOT,
	*mocks.MockIStatus,
	*mocks.MockIReading,
	*mocks.MockIAlertLog,
) {
	ctrl := gomock.NewController(t)

	mockIStatus := mocks.NewMockIStatus(ctrl)
	mockIReading := mocks.NewMockIReading(ctrl)
	mockIAlertLog := mocks.NewMockIAlertLog(ctrl)
	dbInstance := db.GetInstance(db.UseMemorySqliteDialector())
	iotInstance := (&IOT{Db: *dbInstance})

	statusService := iotInstance.GetIStatus()
	if useMockIStatus {
		statusService = mockIStatus
	}

	readingService := iotInstance.GetIReading()
	if useMockIReading {
		readingService = mockIReading
	}

	alertLogService := iotInstance.GetIAlertLog()
	if useMockIAlertLog {
		alertLogService = mockIAlertLog
	}

	iotInstance.WithServices(ServiceOpts{
		Status:   statusService,
		Reading:  readingService,
		AlertLog: alertLogService,
	})

	return ctrl, iotInstance, mockIStatus, mockIReading, mockIAlertLog
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

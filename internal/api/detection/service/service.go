package detectionService

import (
	"CrackDetection/internal/api/detection"
	"CrackDetection/pkg/ffmpeg"
	"CrackDetection/pkg/utils"
	websocketPkg "CrackDetection/pkg/websocket"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IDetectionService interface {
	AnalyzeVideo(ctx context.Context, video io.Reader, fileName string) (*detection.AnalysisResult, error)
}

type Config struct {
	WorkingWidth  int
	WorkingHeight int
	JPEGQuality   int
	TempDir       string
}

type detectionService struct {
	log          *logrus.Logger
	frameSource  ffmpeg.IFrameSource
	websocketPkg websocketPkg.IWebsocket
	utils        utils.IUtils
	cfg          Config
}

func NewDetectionService(
	log *logrus.Logger,
	frameSource ffmpeg.IFrameSource,
	websocket websocketPkg.IWebsocket,
	utils utils.IUtils,
	cfg Config,
) IDetectionService {
	return &detectionService{
		log:          log,
		frameSource:  frameSource,
		websocketPkg: websocket,
		utils:        utils,
		cfg:          cfg,
	}
}

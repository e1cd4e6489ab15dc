package protocol

const (
	// controller -> peripheral
	CmdStart       = "START"
	CmdStop        = "STOP"
	CmdBeep1       = "BEEP1"
	CmdBeep2       = "BEEP2"
	CmdGameStart   = "GAME START"
	CmdRoundStart  = "ROUND START"
	CmdDrawShape   = "DRAW SHAPE"
	CmdClearAll    = "CLEAR ALL"
	CmdBeep        = "BEEP"
	CmdGameEnd     = "GAME END"
	CmdPing        = "PING"
	CmdRestartPing = "RESTART PING"
	CmdSetMode     = "SET MODE"

	// peripheral -> controller
	EvtRoundBalance = "ROUND BALANCE"
	EvtEndRound     = "END ROUND"
	EvtGameStartAck = "OK GAME START"
	EvtPong         = "PONG "
)

// Shapes and colors understood by the firmware's DRAW SHAPE command.
const (
	ShapeCircle = "CIRCLE"

	ColorBlue   = "BLUE"
	ColorGreen  = "GREEN"
	ColorRed    = "RED"
	ColorYellow = "YELLOW"
	ColorWhite  = "WHITE"
)

// GameType sent with the adaptive GAME START.
const GameTypeSimon = "SIMON"

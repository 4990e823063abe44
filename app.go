package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/laplace-pym/ndtview/ndt"
)

// App encapsulates the service state and dependencies: the supervised
// localizer, the pose feed, the consumer-owned state tracker, and the
// loaded map cloud. All mutable display state lives in State and is
// updated only by the drain loop.
type App struct {
	Config     *ndt.Config
	Bridge     *ndt.Bridge
	State      *ndt.StateTracker
	Supervisor *ndt.Supervisor
	Subscriber *ndt.Subscriber
	Publisher  *ndt.Publisher
	Cloud      *ndt.Cloud
	Track      *ndt.Track

	stopDrain chan struct{}
	drained   chan struct{}
}

// NewApp wires the components around one bridge
func NewApp(config *ndt.Config) *App {
	bridge := ndt.NewBridge(0)
	app := &App{
		Config: config,
		Bridge: bridge,
		State:  ndt.NewStateTracker(),
		// 5cm spacing keeps the trail from bloating while parked
		Track: ndt.NewTrack(0, 0.05),
	}
	app.Supervisor = ndt.NewSupervisor(config.Launcher.Command, config.Launcher.WorkDir, bridge)
	app.Subscriber = ndt.NewSubscriber(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.PoseTopic, bridge)
	return app
}

// LoadMap loads the configured point-cloud map, or generates the sample
// cloud when no path is set.
func (a *App) LoadMap() error {
	if a.Config.Map.Path == "" {
		log.Println("No map path configured, generating sample cloud")
		a.Cloud = ndt.SampleCloud(1000, nil)
		return nil
	}

	cloud, err := ndt.LoadCloud(a.Config.Map.Path)
	if err != nil {
		return fmt.Errorf("loading map %s: %w", a.Config.Map.Path, err)
	}
	log.Printf("Loaded map %s (%d points)", a.Config.Map.Path, cloud.Len())
	a.Cloud = cloud
	return nil
}

// StartDrain launches the single consumer loop that applies bridge events
// to the state tracker and trajectory.
func (a *App) StartDrain() {
	a.stopDrain = make(chan struct{})
	a.drained = make(chan struct{})
	go a.runDrain()
}

// StopDrain stops the consumer loop and waits for it to exit
func (a *App) StopDrain() {
	if a.stopDrain == nil {
		return
	}
	close(a.stopDrain)
	<-a.drained
	a.stopDrain = nil
}

func (a *App) runDrain() {
	defer close(a.drained)
	for {
		select {
		case <-a.stopDrain:
			return
		case ev := <-a.Bridge.Lines():
			a.State.AppendLog(ev)
			log.Printf("[localizer] %s", ev.Text)
		case ev := <-a.Bridge.Exits():
			a.State.RecordExit(ev)
			a.publishStatus()
		case ev := <-a.Bridge.Poses():
			a.State.UpdatePose(ev)
			a.Track.Add(ev.X, ev.Y)
			if a.Publisher != nil {
				if pose := a.State.Pose(); pose != nil {
					if err := a.Publisher.PublishPose(*pose); err != nil {
						log.Printf("Error republishing pose: %v", err)
					}
				}
			}
		case ev := <-a.Bridge.FeedStates():
			a.State.SetFeedState(ev.State)
			if ev.Err != nil {
				a.State.RecordError(ev.Err)
			}
			a.publishStatus()
		}
	}
}

// publishStatus pushes the current status snapshot to the broker, best effort
func (a *App) publishStatus() {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishStatus(a.State.Snapshot()); err != nil {
		log.Printf("Error publishing status: %v", err)
	}
}

// StartLocalizer launches the supervised localizer process
func (a *App) StartLocalizer() error {
	err := a.Supervisor.Start()
	a.State.SetProcState(a.Supervisor.State())
	return err
}

// StopLocalizer stops the localizer with the configured two-phase timeout
func (a *App) StopLocalizer() error {
	a.State.SetProcState(ndt.ProcStopping)
	err := a.Supervisor.Stop(a.Config.Launcher.StopTimeout())
	a.State.SetProcState(a.Supervisor.State())
	return err
}

// StartFeed connects the pose feed and hooks up the republishing client
func (a *App) StartFeed() error {
	if err := a.Subscriber.Start(); err != nil {
		return err
	}
	a.Publisher = ndt.NewPublisher(a.Subscriber.Client(), a.Config.MQTT.PublishPrefix)
	return nil
}

// RestartFeed tears down and reconnects the pose feed
func (a *App) RestartFeed() error {
	if err := a.Subscriber.Restart(); err != nil {
		return err
	}
	a.Publisher = ndt.NewPublisher(a.Subscriber.Client(), a.Config.MQTT.PublishPrefix)
	return nil
}

// SaveCoordinates appends the given fix to the coordinate log. Orientation
// comes from the latest pose when one is available.
func (a *App) SaveCoordinates(lon, lat, alt float64) error {
	rec := ndt.GPSRecord{
		Timestamp: time.Now(),
		Lon:       lon,
		Lat:       lat,
		Alt:       alt,
	}
	if pose := a.State.Pose(); pose != nil {
		rec.Roll = pose.RollDeg
		rec.Pitch = pose.PitchDeg
		rec.Yaw = pose.YawDeg
	}
	return ndt.AppendRecord(a.Config.GPS.LogPath, rec)
}

// newRenderer builds the raster renderer seeded with current pose and trail
func (a *App) newRenderer() *ndt.CloudRenderer {
	r := ndt.NewCloudRenderer(a.Cloud)
	r.Scale = a.Config.Map.Scale
	r.MaxPoints = a.Config.Map.MaxDisplayPoints
	if pose := a.State.Pose(); pose != nil {
		r.Pose = poseEvent(pose)
	}
	r.Trail = trailPoints(a.Track)
	return r
}

// newVectorRenderer builds the vector renderer seeded the same way
func (a *App) newVectorRenderer() *ndt.CloudVectorRenderer {
	r := ndt.NewCloudVectorRenderer(a.Cloud)
	r.Scale = a.Config.Map.Scale
	r.GridSpacing = a.Config.Map.GridSpacing
	if pose := a.State.Pose(); pose != nil {
		r.Pose = poseEvent(pose)
	}
	r.Trail = trailPoints(a.Track)
	return r
}

// poseEvent converts a degree-space snapshot back to the radian-space event
// the renderers consume.
func poseEvent(pose *ndt.PoseSnapshot) *ndt.PoseEvent {
	return &ndt.PoseEvent{
		X:     pose.X,
		Y:     pose.Y,
		Z:     pose.Z,
		Roll:  pose.RollDeg * math.Pi / 180,
		Pitch: pose.PitchDeg * math.Pi / 180,
		Yaw:   pose.YawDeg * math.Pi / 180,
	}
}

func trailPoints(track *ndt.Track) [][2]float64 {
	line := track.Line()
	out := make([][2]float64, len(line))
	for i, p := range line {
		out[i] = [2]float64{p[0], p[1]}
	}
	return out
}

// Shutdown tears everything down in dependency order: producers first,
// then the consumer loop.
func (a *App) Shutdown() {
	if err := a.StopLocalizer(); err != nil {
		log.Printf("Error stopping localizer: %v", err)
	}
	a.Subscriber.Stop()
	a.StopDrain()
}
